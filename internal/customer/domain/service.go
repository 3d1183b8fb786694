package domain

import (
	"context"

	"github.com/smallbiznis/crm/internal/apperr"
	"github.com/smallbiznis/crm/internal/filter"
	"github.com/smallbiznis/crm/pkg/db/pagination"
)

type CreateCustomerRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,max=100,email"`
	Phone string `json:"phone" validate:"omitempty,phone,max=20"`
}

type BulkCreateCustomersRequest struct {
	Customers []CreateCustomerRequest `json:"customers"`
}

// BulkCreateCustomersResponse lists what was written plus one
// "<email>: <reason>" message per rejected entry, in input order.
type BulkCreateCustomersResponse struct {
	Customers []Customer `json:"customers"`
	Errors    []string   `json:"errors"`
}

type ListCustomerRequest struct {
	pagination.Pagination
	Filters map[string]string
	OrderBy []string
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type GetCustomerRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	BulkCreate(context.Context, BulkCreateCustomersRequest) (BulkCreateCustomersResponse, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
}

var Filters = filter.NewSet(
	filter.Contains("name", "customers.name"),
	filter.Contains("email", "customers.email"),
	filter.AtLeast("created_from", "customers.created_at", filter.KindTime),
	filter.AtMost("created_to", "customers.created_at", filter.KindTime),
	filter.Prefix("phone_prefix", "customers.phone"),
)

var SortFields = map[string]string{
	"id":         "id",
	"name":       "name",
	"email":      "email",
	"phone":      "phone",
	"created_at": "created_at",
}

// Field sentinels use the "<field>_required" and "invalid_<field>" codes
// built by validation.Translate.
var (
	ErrInvalidID      = apperr.New(apperr.KindInvalidFormat, "id", "invalid_id", "invalid customer id")
	ErrNotFound       = apperr.New(apperr.KindNotFound, "customer", "customer_not_found", "customer not found")
	ErrNameRequired   = apperr.New(apperr.KindInvalidValue, "name", "name_required", "name is required")
	ErrInvalidName    = apperr.New(apperr.KindInvalidValue, "name", "invalid_name", "name is too long")
	ErrEmailRequired  = apperr.New(apperr.KindInvalidValue, "email", "email_required", "email is required")
	ErrInvalidEmail   = apperr.New(apperr.KindInvalidFormat, "email", "invalid_email", "email must be a valid email address")
	ErrInvalidPhone   = apperr.New(apperr.KindInvalidFormat, "phone", "invalid_phone", "invalid phone number")
	ErrDuplicateEmail = apperr.New(apperr.KindDuplicateKey, "email", "duplicate_email", "a customer with this email already exists")
	ErrEmptyBatch     = apperr.New(apperr.KindInvalidValue, "customers", "empty_batch", "at least one customer is required")
	ErrBatchTooLarge  = apperr.New(apperr.KindInvalidValue, "customers", "batch_too_large", "too many customers in one batch")
)
