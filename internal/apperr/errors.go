// Package apperr defines the error kinds surfaced by CRM operations.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a business-rule failure.
type Kind string

const (
	KindInvalidFormat Kind = "invalid_format"
	KindInvalidValue  Kind = "invalid_value"
	KindDuplicateKey  Kind = "duplicate_key"
	KindNotFound      Kind = "not_found"
)

// Error is a classified failure with a human-readable message.
type Error struct {
	Kind    Kind
	Field   string
	Code    string
	Message string
}

var (
	ErrInvalidFormat = &Error{Kind: KindInvalidFormat, Message: "invalid format"}
	ErrInvalidValue  = &Error{Kind: KindInvalidValue, Message: "invalid value"}
	ErrDuplicateKey  = &Error{Kind: KindDuplicateKey, Message: "duplicate key"}
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "not found"}
)

// New returns an error of the given kind.
func New(kind Kind, field, code, message string) *Error {
	return &Error{Kind: kind, Field: field, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return string(e.Kind)
}

// Is matches another *Error by kind, and by code when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// WithMessage returns a copy of e with a formatted message. The copy still matches e.
func (e *Error) WithMessage(format string, args ...any) *Error {
	clone := *e
	clone.Message = fmt.Sprintf(format, args...)
	return &clone
}

// As extracts the classified error from err.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) && target != nil {
		return target, true
	}
	return nil, false
}

// KindOf reports the kind of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// IsBusinessRule reports whether err is one of the classified kinds.
// Anything else is treated as a fault by callers that batch writes.
func IsBusinessRule(err error) bool {
	return KindOf(err) != ""
}
