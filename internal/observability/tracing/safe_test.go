package tracing

import (
	"errors"
	"testing"

	"github.com/smallbiznis/crm/internal/apperr"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributes(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/customers"),
		attribute.String("customer.email", "ann@example.com"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))

	err := apperr.New(apperr.KindDuplicateKey, "email", "duplicate_email", "ann@example.com exists")
	assert.EqualError(t, SafeError(err), "duplicate_key")
	assert.EqualError(t, SafeError(errors.New("pq: password authentication failed")), "internal_error")
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.0, clampRatio(-1))
	assert.Equal(t, 0.25, clampRatio(0.25))
	assert.Equal(t, 1.0, clampRatio(3))
}

func TestEntityFromRoute(t *testing.T) {
	assert.Equal(t, "customer", entityFromRoute("/api/customers/bulk"))
	assert.Equal(t, "order", entityFromRoute("/api/orders/:id"))
	assert.Equal(t, "product", entityFromRoute("/api/products"))
	assert.Empty(t, entityFromRoute("/health"))
	assert.Empty(t, entityFromRoute("unknown"))
}
