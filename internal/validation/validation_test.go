package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crm/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contact struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,max=100,email"`
	Phone string `json:"phone" validate:"omitempty,phone,max=20"`
}

type item struct {
	Price decimal.Decimal `json:"price" validate:"decimal_gt0,max_scale2"`
	Stock *int64          `json:"stock" validate:"omitempty,gte=0"`
}

func int64Ptr(v int64) *int64 { return &v }

func TestPhoneSamples(t *testing.T) {
	valid := []string{"+12345678901", "+123456789012345", "555-123-4567"}
	invalid := []string{"12345", "+123", "555-1234-567", "+1234567890123456", "abc-def-ghij", "555 123 4567"}

	for _, phone := range valid {
		assert.True(t, IsPhone(phone), phone)
	}
	for _, phone := range invalid {
		assert.False(t, IsPhone(phone), phone)
	}
}

func TestStructReportsFormatErrors(t *testing.T) {
	v := New()

	err := v.Struct(contact{Name: "Ann", Email: "ann@example.com", Phone: "12345"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidFormat)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "phone", appErr.Field)
	assert.Equal(t, "invalid_phone", appErr.Code)

	err = v.Struct(contact{Name: "Ann", Email: "not-an-email"})
	assert.ErrorIs(t, err, apperr.ErrInvalidFormat)
}

func TestStructReportsValueErrors(t *testing.T) {
	v := New()

	err := v.Struct(contact{Name: "", Email: "ann@example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidValue)
	appErr, _ := apperr.As(err)
	assert.Equal(t, "name_required", appErr.Code)

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	err = v.Struct(contact{Name: string(long), Email: "ann@example.com"})
	assert.ErrorIs(t, err, apperr.ErrInvalidValue)
}

func TestStructAcceptsValidContact(t *testing.T) {
	assert.NoError(t, New().Struct(contact{Name: "Ann", Email: "ann@example.com", Phone: "555-123-4567"}))
	assert.NoError(t, New().Struct(contact{Name: "Ann", Email: "ann@example.com"}))
}

func TestDecimalRules(t *testing.T) {
	v := New()

	cases := []struct {
		price string
		ok    bool
	}{
		{"10.00", true},
		{"0.01", true},
		{"0", false},
		{"-1", false},
		{"1.005", false},
	}
	for _, tc := range cases {
		err := v.Struct(item{Price: decimal.RequireFromString(tc.price)})
		if tc.ok {
			assert.NoError(t, err, tc.price)
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrInvalidValue, tc.price)
	}
}

func TestStockBounds(t *testing.T) {
	v := New()
	price := decimal.RequireFromString("1.00")

	assert.NoError(t, v.Struct(item{Price: price}))
	assert.NoError(t, v.Struct(item{Price: price, Stock: int64Ptr(0)}))

	err := v.Struct(item{Price: price, Stock: int64Ptr(-1)})
	assert.ErrorIs(t, err, apperr.ErrInvalidValue)
	appErr, _ := apperr.As(err)
	assert.Equal(t, "stock", appErr.Field)
}
