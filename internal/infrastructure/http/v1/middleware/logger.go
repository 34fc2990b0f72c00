package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"ledgertree/pkg/logger"
)

// Logger logs one line per request with status and latency.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, "error", errs)
		}

		l := log.WithContext(c.Request.Context())
		if c.Writer.Status() >= 500 {
			l.Warnw("http request", fields...)
			return
		}
		l.Infow("http request", fields...)
	}
}
