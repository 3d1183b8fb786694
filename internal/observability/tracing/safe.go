package tracing

import (
	"context"
	"errors"

	"github.com/smallbiznis/crm/internal/apperr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

var allowedSpanKeys = map[attribute.Key]struct{}{
	"http.method":             {},
	"http.route":              {},
	"http.status_code":        {},
	"http.server_duration_ms": {},
	"request_id":              {},
	"error.kind":              {},
	"crm.entity":              {},
	"crm.bulk_entries":        {},
}

// SafeAttributes keeps only attributes that cannot carry customer data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedSpanKeys[attr.Key]; ok {
			out = append(out, attr)
		}
	}
	return out
}

// SafeError reduces err to its classification. Raw messages can embed SQL
// parameters or email addresses and are not recorded on spans.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	if kind := apperr.KindOf(err); kind != "" {
		return errors.New(string(kind))
	}
	return errors.New("internal_error")
}

// ExtractContext reads upstream trace context from carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
