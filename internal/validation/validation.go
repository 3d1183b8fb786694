// Package validation checks request structs against their validate tags and
// reports the first failure as a classified apperr.Error.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crm/internal/apperr"
	"go.uber.org/fx"
)

var Module = fx.Module("validation",
	fx.Provide(New),
)

var phonePattern = regexp.MustCompile(`^(\+\d{10,15}|\d{3}-\d{3}-\d{4})$`)

// tags whose failure means the value is malformed rather than out of range
var formatTags = map[string]bool{
	"email": true,
	"phone": true,
}

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	mustRegister(v, "phone", isPhone)
	mustRegister(v, "decimal_gt0", isPositiveDecimal)
	mustRegister(v, "max_scale2", hasMaxTwoDecimals)

	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", tag, err))
	}
}

// Struct validates s. Fields are checked in declaration order and the first
// failure wins.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	return Translate(fieldErrs[0])
}

// IsPhone reports whether value is an acceptable phone number.
func IsPhone(value string) bool {
	return phonePattern.MatchString(value)
}

// Translate converts a validator failure into an apperr.Error. Missing
// values get the code "<field>_required", anything else "invalid_<field>".
// Domain sentinels such as customer ErrInvalidPhone declare these same codes,
// so errors.Is against them depends on this naming.
func Translate(fe validator.FieldError) *apperr.Error {
	field := fe.Field()
	kind := apperr.KindInvalidValue
	if formatTags[fe.Tag()] {
		kind = apperr.KindInvalidFormat
	}

	code := "invalid_" + field
	if fe.Tag() == "required" {
		code = field + "_required"
	}
	return apperr.New(kind, field, code, message(field, fe))
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "phone":
		return field + " must be '+' followed by 10 to 15 digits, or NNN-NNN-NNNN"
	case "decimal_gt0":
		return field + " must be greater than 0"
	case "max_scale2":
		return field + " must have at most two decimal places"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

func isPhone(fl validator.FieldLevel) bool {
	return IsPhone(fl.Field().String())
}

func parseDecimal(fl validator.FieldLevel) (decimal.Decimal, bool) {
	if fl.Field().Kind() != reflect.String {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func isPositiveDecimal(fl validator.FieldLevel) bool {
	d, ok := parseDecimal(fl)
	return ok && d.IsPositive()
}

func hasMaxTwoDecimals(fl validator.FieldLevel) bool {
	d, ok := parseDecimal(fl)
	return ok && d.Equal(d.Truncate(2))
}
