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

type ListRequest struct {
	pagination.Pagination
	Filters map[string]string
	OrderBy []string
}

type CreateRequest struct {
	Name  string          `json:"name" validate:"required,max=100"`
	Price decimal.Decimal `json:"price" validate:"decimal_gt0,max_scale2"`
	Stock *int64          `json:"stock" validate:"omitempty,gte=0"`
}

type Response struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Stock     int64     `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListResponse struct {
	pagination.PageInfo
	Products []Response `json:"products"`
}

var Filters = filter.NewSet(
	filter.Contains("name", "products.name"),
	filter.AtLeast("price_min", "products.price", filter.KindDecimal),
	filter.AtMost("price_max", "products.price", filter.KindDecimal),
	filter.AtLeast("stock_min", "products.stock", filter.KindInteger),
	filter.AtMost("stock_max", "products.stock", filter.KindInteger),
)

var SortFields = map[string]string{
	"id":         "id",
	"name":       "name",
	"price":      "price",
	"stock":      "stock",
	"created_at": "created_at",
}

// Field sentinels use the "<field>_required" and "invalid_<field>" codes
// built by validation.Translate.
var (
	ErrInvalidID    = apperr.New(apperr.KindInvalidFormat, "id", "invalid_id", "invalid product id")
	ErrNameRequired = apperr.New(apperr.KindInvalidValue, "name", "name_required", "name is required")
	ErrInvalidName  = apperr.New(apperr.KindInvalidValue, "name", "invalid_name", "name is too long")
	ErrInvalidPrice = apperr.New(apperr.KindInvalidValue, "price", "invalid_price", "price must be greater than 0 with at most two decimal places")
	ErrInvalidStock = apperr.New(apperr.KindInvalidValue, "stock", "invalid_stock", "stock must not be negative")
	ErrNotFound     = apperr.New(apperr.KindNotFound, "product", "product_not_found", "product not found")
)
