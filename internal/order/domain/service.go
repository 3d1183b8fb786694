package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crm/internal/apperr"
	"github.com/smallbiznis/crm/internal/filter"
	"github.com/smallbiznis/crm/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Get(ctx context.Context, id string) (*Response, error)
}

type CreateRequest struct {
	CustomerID string     `json:"customer_id"`
	ProductIDs []string   `json:"product_ids"`
	OrderDate  *time.Time `json:"order_date"`
}

type ListRequest struct {
	pagination.Pagination
	Filters map[string]string
	OrderBy []string
}

type CustomerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ProductSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

type Response struct {
	ID          string           `json:"id"`
	CustomerID  string           `json:"customer_id"`
	Customer    *CustomerSummary `json:"customer,omitempty"`
	Products    []ProductSummary `json:"products"`
	TotalAmount string           `json:"total_amount"`
	OrderDate   time.Time        `json:"order_date"`
	CreatedAt   time.Time        `json:"created_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Orders []Response `json:"orders"`
}

// MaxTotalAmount is the largest total a decimal(10,2) column holds.
var MaxTotalAmount = decimal.RequireFromString("99999999.99")

var Filters = filter.NewSet(
	filter.AtLeast("total_min", "orders.total_amount", filter.KindDecimal),
	filter.AtMost("total_max", "orders.total_amount", filter.KindDecimal),
	filter.AtLeast("ordered_from", "orders.order_date", filter.KindTime),
	filter.AtMost("ordered_to", "orders.order_date", filter.KindTime),
	filter.ExistsContains("customer_name",
		"SELECT 1 FROM customers c WHERE c.id = orders.customer_id", "c.name"),
	filter.ExistsContains("product_name",
		"SELECT 1 FROM order_products op JOIN products p ON p.id = op.product_id WHERE op.order_id = orders.id", "p.name"),
	filter.ExistsEqual("product_id", filter.KindID,
		"SELECT 1 FROM order_products op WHERE op.order_id = orders.id", "op.product_id"),
)

var SortFields = map[string]string{
	"id":           "id",
	"total_amount": "total_amount",
	"order_date":   "order_date",
	"created_at":   "created_at",
}

var (
	ErrInvalidID         = apperr.New(apperr.KindInvalidFormat, "id", "invalid_id", "invalid order id")
	ErrInvalidCustomerID = apperr.New(apperr.KindInvalidFormat, "customer_id", "invalid_customer_id", "invalid customer id")
	ErrInvalidProductID  = apperr.New(apperr.KindInvalidFormat, "product_ids", "invalid_product_id", "invalid product id")
	ErrEmptyProducts     = apperr.New(apperr.KindInvalidValue, "product_ids", "empty_product_ids", "an order needs at least one product")
	ErrTotalOutOfRange   = apperr.New(apperr.KindInvalidValue, "product_ids", "total_out_of_range", "order total exceeds the maximum amount")
	ErrCustomerNotFound  = apperr.New(apperr.KindNotFound, "customer_id", "customer_not_found", "customer not found")
	ErrProductNotFound   = apperr.New(apperr.KindNotFound, "product_ids", "product_not_found", "product not found")
	ErrNotFound          = apperr.New(apperr.KindNotFound, "order", "order_not_found", "order not found")
)
