package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/crm/pkg/db/pagination"
)

const (
	queryOrderBy   = "order_by"
	queryPageSize  = "page_size"
	queryPageToken = "page_token"
)

// listQuery carries the shared list parameters. Every other query parameter
// is a filter and is validated by the entity's filter set.
type listQuery struct {
	Page    pagination.Pagination
	Filters map[string]string
	OrderBy []string
}

func parseListQuery(c *gin.Context) (listQuery, error) {
	var q listQuery

	if raw := strings.TrimSpace(c.Query(queryPageSize)); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			return q, newValidationError(queryPageSize, "invalid_page_size", "page_size must be a non-negative integer")
		}
		q.Page.PageSize = size
	}
	q.Page.PageToken = strings.TrimSpace(c.Query(queryPageToken))
	q.OrderBy = splitOrderBy(c.Query(queryOrderBy))

	values := c.Request.URL.Query()
	for key, vals := range values {
		switch key {
		case queryOrderBy, queryPageSize, queryPageToken:
			continue
		}
		if len(vals) == 0 {
			continue
		}
		if q.Filters == nil {
			q.Filters = make(map[string]string, len(values))
		}
		q.Filters[key] = vals[len(vals)-1]
	}

	return q, nil
}

func splitOrderBy(value string) []string {
	var fields []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			fields = append(fields, trimmed)
		}
	}
	return fields
}
