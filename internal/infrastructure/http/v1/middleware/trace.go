package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	appctx "ledgertree/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace attaches request and trace ids to the request context and echoes
// them in response headers. An active OpenTelemetry span supplies the
// trace id when the caller sent none.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		traceID := c.GetHeader(HeaderTraceID)
		spanID := ""
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			if traceID == "" {
				traceID = sc.TraceID().String()
			}
			spanID = sc.SpanID().String()
		}
		if traceID == "" {
			traceID = uuid.New().String()
		}
		if spanID == "" {
			spanID = uuid.New().String()[:16]
		}

		ctx = appctx.WithTrace(ctx, &appctx.TraceContext{
			TraceID:   traceID,
			SpanID:    spanID,
			RequestID: requestID,
		})
		c.Request = c.Request.WithContext(ctx)

		c.Set("trace_id", traceID)
		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		c.Next()
	}
}
