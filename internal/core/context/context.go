// Package context carries request and report-run identifiers through
// context.Context for logging and tracing.
package context

import (
	"context"

	"github.com/google/uuid"
)

type (
	traceKey struct{}
	runKey   struct{}
)

// TraceContext identifies the HTTP request a computation belongs to.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

// WithTrace stores t in ctx.
func WithTrace(ctx context.Context, t *TraceContext) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// GetTrace returns the TraceContext stored in ctx, or nil.
func GetTrace(ctx context.Context) *TraceContext {
	t, _ := ctx.Value(traceKey{}).(*TraceContext)
	return t
}

// RunContext identifies one report computation.
type RunContext struct {
	RunID  string
	Report string
}

// WithRun starts a report run for the named report with a fresh run id.
func WithRun(ctx context.Context, report string) context.Context {
	return context.WithValue(ctx, runKey{}, &RunContext{
		RunID:  uuid.New().String(),
		Report: report,
	})
}

// GetRun returns the RunContext stored in ctx, or nil.
func GetRun(ctx context.Context) *RunContext {
	r, _ := ctx.Value(runKey{}).(*RunContext)
	return r
}
