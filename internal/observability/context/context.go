// Package context carries request-scoped identifiers used by logs and traces.
package context

import (
	"context"
	"strings"

	"github.com/smallbiznis/crm/pkg/telemetry/correlation"
)

type requestIDKey struct{}

// WithRequestID stores the inbound request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// CorrelationIDFromContext returns the correlation id, if one was assigned.
func CorrelationIDFromContext(ctx context.Context) string {
	return correlation.FromContext(ctx)
}
