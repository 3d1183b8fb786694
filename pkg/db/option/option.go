// Package option holds reusable query modifiers applied to gorm statements.
package option

import (
	"strings"

	"github.com/smallbiznis/crm/internal/apperr"
	"github.com/smallbiznis/crm/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidSortField = apperr.New(apperr.KindInvalidValue, "order_by", "invalid_order_by", "unknown sort field")
	ErrInvalidPageToken = apperr.New(apperr.KindInvalidFormat, "page_token", "invalid_page_token", "invalid page token")
	ErrInvalidPageSize  = apperr.New(apperr.KindInvalidValue, "page_size", "invalid_page_size", "invalid page size")
)

type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type QueryOptionFunc func(*gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB {
	return f(db)
}

// SortField is one column of an ORDER BY clause.
type SortField struct {
	Column string
	Desc   bool
}

// ParseSort resolves field names against an allow-list of field -> column.
// A leading "-" reverses the direction of that field.
func ParseSort(fields []string, allowed map[string]string) ([]SortField, error) {
	out := make([]SortField, 0, len(fields))
	for _, raw := range fields {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		desc := false
		if strings.HasPrefix(name, "-") {
			desc = true
			name = strings.TrimSpace(strings.TrimPrefix(name, "-"))
		}
		column, ok := allowed[name]
		if !ok {
			return nil, ErrInvalidSortField.WithMessage("unknown sort field %q", name)
		}
		out = append(out, SortField{Column: column, Desc: desc})
	}
	return out, nil
}

// WithSort orders by the given fields, then by tiebreak ascending.
func WithSort(fields []SortField, tiebreak string) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		seen := make(map[string]bool, len(fields)+1)
		for _, field := range fields {
			if seen[field.Column] {
				continue
			}
			seen[field.Column] = true
			db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: field.Column}, Desc: field.Desc})
		}
		if tiebreak != "" && !seen[tiebreak] {
			db = db.Order(clause.OrderByColumn{Column: clause.Column{Name: tiebreak}})
		}
		return db
	})
}

// PageOffset decodes the page token into a row offset.
func PageOffset(page pagination.Pagination) (int, error) {
	token := strings.TrimSpace(page.PageToken)
	if token == "" {
		return 0, nil
	}
	cursor, err := pagination.DecodeCursor(token)
	if err != nil || cursor.Offset < 0 {
		return 0, ErrInvalidPageToken
	}
	return cursor.Offset, nil
}

// ApplyPagination limits the statement to one page plus a look-ahead row.
// A zero page size leaves the statement unbounded.
func ApplyPagination(page pagination.Pagination, offset int) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if page.PageSize <= 0 {
			return db
		}
		return db.Limit(page.PageSize + 1).Offset(offset)
	})
}

// CheckPageSize rejects negative sizes and sizes above max. Zero means
// "everything" and is always accepted.
func CheckPageSize(page pagination.Pagination, max int) error {
	if page.PageSize < 0 {
		return ErrInvalidPageSize.WithMessage("page_size must not be negative")
	}
	if max > 0 && page.PageSize > max {
		return ErrInvalidPageSize.WithMessage("page_size must be at most %d", max)
	}
	return nil
}
