package option

import (
	"testing"

	"github.com/smallbiznis/crm/internal/apperr"
	"github.com/smallbiznis/crm/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sortable = map[string]string{
	"id":   "customers.id",
	"name": "customers.name",
}

func TestParseSort(t *testing.T) {
	fields, err := ParseSort([]string{"-name", " id ", ""}, sortable)
	require.NoError(t, err)
	assert.Equal(t, []SortField{
		{Column: "customers.name", Desc: true},
		{Column: "customers.id"},
	}, fields)
}

func TestParseSortRejectsUnknownField(t *testing.T) {
	_, err := ParseSort([]string{"password"}, sortable)
	assert.ErrorIs(t, err, ErrInvalidSortField)
	assert.ErrorIs(t, err, apperr.ErrInvalidValue)
	assert.Contains(t, err.Error(), "password")
}

func TestPageOffset(t *testing.T) {
	offset, err := PageOffset(pagination.Pagination{})
	require.NoError(t, err)
	assert.Zero(t, offset)

	token, err := pagination.EncodeCursor(pagination.Cursor{Offset: 20})
	require.NoError(t, err)
	offset, err = PageOffset(pagination.Pagination{PageToken: token})
	require.NoError(t, err)
	assert.Equal(t, 20, offset)

	_, err = PageOffset(pagination.Pagination{PageToken: "%%%"})
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestCheckPageSize(t *testing.T) {
	assert.NoError(t, CheckPageSize(pagination.Pagination{PageSize: 0}, 10))
	assert.NoError(t, CheckPageSize(pagination.Pagination{PageSize: 10}, 10))
	assert.ErrorIs(t, CheckPageSize(pagination.Pagination{PageSize: 11}, 10), ErrInvalidPageSize)
	assert.ErrorIs(t, CheckPageSize(pagination.Pagination{PageSize: -1}, 10), apperr.ErrInvalidValue)
}
