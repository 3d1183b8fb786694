package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/crm/internal/apperr"
	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/config"
	"github.com/smallbiznis/crm/internal/customer/domain"
	"github.com/smallbiznis/crm/internal/customer/repository"
	"github.com/smallbiznis/crm/internal/migration"
	"github.com/smallbiznis/crm/internal/testutil"
	"github.com/smallbiznis/crm/internal/validation"
	"github.com/smallbiznis/crm/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, limits config.Limits) (*Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	db := testutil.NewDB(t)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(epoch)
	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.Provide(),
		Clock:     clk,
		Validator: validation.New(),
		Limits:    config.NewStaticLimitsHolder(limits),
	}).(*Service)
	return svc, db, clk
}

func countCustomers(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&domain.Customer{}).Count(&n).Error)
	return n
}

func TestCreateCustomer(t *testing.T) {
	svc, _, _ := newTestService(t, config.DefaultLimits())

	customer, err := svc.Create(context.Background(), domain.CreateCustomerRequest{
		Name:  "  Ada Lovelace ",
		Email: "ada@example.com",
		Phone: "+12345678901",
	})
	require.NoError(t, err)
	assert.NotZero(t, customer.ID)
	assert.Equal(t, "Ada Lovelace", customer.Name)
	assert.Equal(t, epoch, customer.CreatedAt)

	got, err := svc.GetByID(context.Background(), domain.GetCustomerRequest{ID: customer.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, "+12345678901", got.Phone)
}

func TestCreateCustomerRejectsDuplicateEmail(t *testing.T) {
	svc, db, _ := newTestService(t, config.DefaultLimits())
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "B", Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	assert.ErrorIs(t, err, apperr.ErrDuplicateKey)
	assert.Equal(t, int64(1), countCustomers(t, db))
}

// skipEmailCheck hides existing emails so inserts reach the unique index.
type skipEmailCheck struct {
	domain.Repository
}

func (skipEmailCheck) EmailExists(context.Context, *gorm.DB, string) (bool, error) {
	return false, nil
}

func TestUniqueIndexRejectsDuplicateEmail(t *testing.T) {
	svc, db, _ := newTestService(t, config.DefaultLimits())
	svc.repo = skipEmailCheck{Repository: svc.repo}
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateCustomerRequest{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateCustomerRequest{Name: "B", Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
	assert.Equal(t, apperr.KindDuplicateKey, apperr.KindOf(err))
	assert.Equal(t, int64(1), countCustomers(t, db))

	resp, err := svc.BulkCreate(ctx, domain.BulkCreateCustomersRequest{
		Customers: []domain.CreateCustomerRequest{
			{Name: "A again", Email: "a@example.com"},
			{Name: "C", Email: "c@example.com"},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Customers, 1)
	assert.Equal(t, "c@example.com", resp.Customers[0].Email)
	assert.Equal(t, []string{"a@example.com: " + domain.ErrDuplicateEmail.Error()}, resp.Errors)
	assert.Equal(t, int64(2), countCustomers(t, db))
}

func TestCreateCustomerValidation(t *testing.T) {
	svc, db, _ := newTestService(t, config.DefaultLimits())
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CreateCustomerRequest
		want error
	}{
		{"blank name", domain.CreateCustomerRequest{Name: "   ", Email: "a@example.com"}, domain.ErrNameRequired},
		{"long name", domain.CreateCustomerRequest{Name: strings.Repeat("a", 101), Email: "a@example.com"}, domain.ErrInvalidName},
		{"missing email", domain.CreateCustomerRequest{Name: "A"}, domain.ErrEmailRequired},
		{"malformed email", domain.CreateCustomerRequest{Name: "A", Email: "nope"}, domain.ErrInvalidEmail},
		{"short phone", domain.CreateCustomerRequest{Name: "A", Email: "a@example.com", Phone: "12345"}, domain.ErrInvalidPhone},
		{"phone letters", domain.CreateCustomerRequest{Name: "A", Email: "a@example.com", Phone: "abc-def-ghij"}, domain.ErrInvalidPhone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Zero(t, countCustomers(t, db))
}

func TestBulkCreateReportsRejectedEntries(t *testing.T) {
	svc, db, _ := newTestService(t, config.DefaultLimits())

	resp, err := svc.BulkCreate(context.Background(), domain.BulkCreateCustomersRequest{
		Customers: []domain.CreateCustomerRequest{
			{Name: "X", Email: "x@example.com"},
			{Name: "X again", Email: "x@example.com"},
			{Name: "Bad phone", Email: "p@example.com", Phone: "12"},
			{Name: "Y", Email: "y@example.com", Phone: "555-123-4567"},
		},
	})
	require.NoError(t, err)

	require.Len(t, resp.Customers, 2)
	assert.Equal(t, "x@example.com", resp.Customers[0].Email)
	assert.Equal(t, "y@example.com", resp.Customers[1].Email)
	assert.Equal(t, []string{
		"x@example.com: " + domain.ErrDuplicateEmail.Error(),
		"p@example.com: phone must be '+' followed by 10 to 15 digits, or NNN-NNN-NNNN",
	}, resp.Errors)
	assert.Equal(t, int64(2), countCustomers(t, db))
}

func TestBulkCreateFullSuccessHasNoErrors(t *testing.T) {
	svc, _, _ := newTestService(t, config.DefaultLimits())

	resp, err := svc.BulkCreate(context.Background(), domain.BulkCreateCustomersRequest{
		Customers: []domain.CreateCustomerRequest{
			{Name: "A", Email: "a@example.com"},
			{Name: "B", Email: "b@example.com"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Customers, 2)
	assert.NotNil(t, resp.Errors)
	assert.Empty(t, resp.Errors)
}

func TestBulkCreateFaultRollsBackEverything(t *testing.T) {
	svc, db, _ := newTestService(t, config.DefaultLimits())

	fault := errors.New("disk full")
	require.NoError(t, db.Callback().Raw().Before("gorm:raw").Register("test:fault", func(tx *gorm.DB) {
		for _, v := range tx.Statement.Vars {
			if v == "boom@example.com" {
				_ = tx.AddError(fault)
			}
		}
	}))

	_, err := svc.BulkCreate(context.Background(), domain.BulkCreateCustomersRequest{
		Customers: []domain.CreateCustomerRequest{
			{Name: "A", Email: "a@example.com"},
			{Name: "Boom", Email: "boom@example.com"},
			{Name: "C", Email: "c@example.com"},
		},
	})
	assert.ErrorIs(t, err, fault)
	assert.Zero(t, countCustomers(t, db))
}

func TestBulkCreateBatchLimits(t *testing.T) {
	svc, db, _ := newTestService(t, config.Limits{BulkMaxEntries: 2, MaxPageSize: 10})
	ctx := context.Background()

	_, err := svc.BulkCreate(ctx, domain.BulkCreateCustomersRequest{})
	assert.ErrorIs(t, err, domain.ErrEmptyBatch)

	_, err = svc.BulkCreate(ctx, domain.BulkCreateCustomersRequest{
		Customers: []domain.CreateCustomerRequest{
			{Name: "A", Email: "a@example.com"},
			{Name: "B", Email: "b@example.com"},
			{Name: "C", Email: "c@example.com"},
		},
	})
	assert.ErrorIs(t, err, domain.ErrBatchTooLarge)
	assert.Zero(t, countCustomers(t, db))
}

func seedCustomers(t *testing.T, svc *Service, clk *clock.FakeClock) []domain.Customer {
	t.Helper()
	reqs := []domain.CreateCustomerRequest{
		{Name: "Alice Smith", Email: "alice@example.com", Phone: "+15550000001"},
		{Name: "Bob Stone", Email: "bob@corp.io", Phone: "555-123-4567"},
		{Name: "Carol Smithers", Email: "carol@example.com"},
	}
	out := make([]domain.Customer, 0, len(reqs))
	for _, req := range reqs {
		c, err := svc.Create(context.Background(), req)
		require.NoError(t, err)
		out = append(out, c)
		clk.Advance(time.Hour)
	}
	return out
}

func names(resp domain.ListCustomerResponse) []string {
	out := make([]string, 0, len(resp.Customers))
	for _, c := range resp.Customers {
		out = append(out, c.Name)
	}
	return out
}

func TestListFilters(t *testing.T) {
	svc, _, clk := newTestService(t, config.DefaultLimits())
	seedCustomers(t, svc, clk)
	ctx := context.Background()

	resp, err := svc.List(ctx, domain.ListCustomerRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice Smith", "Bob Stone", "Carol Smithers"}, names(resp))
	assert.False(t, resp.HasMore)

	resp, err = svc.List(ctx, domain.ListCustomerRequest{Filters: map[string]string{"name": "SMITH"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice Smith", "Carol Smithers"}, names(resp))

	resp, err = svc.List(ctx, domain.ListCustomerRequest{Filters: map[string]string{"name": "smith", "email": "carol"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol Smithers"}, names(resp))

	resp, err = svc.List(ctx, domain.ListCustomerRequest{Filters: map[string]string{"phone_prefix": "555-"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob Stone"}, names(resp))
}

func TestListCreatedRangeIsInclusive(t *testing.T) {
	svc, _, clk := newTestService(t, config.DefaultLimits())
	seeded := seedCustomers(t, svc, clk)

	resp, err := svc.List(context.Background(), domain.ListCustomerRequest{Filters: map[string]string{
		"created_from": seeded[1].CreatedAt.Format(time.RFC3339),
		"created_to":   seeded[2].CreatedAt.Format(time.RFC3339),
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob Stone", "Carol Smithers"}, names(resp))

	resp, err = svc.List(context.Background(), domain.ListCustomerRequest{Filters: map[string]string{
		"created_to": "2024-01-01",
	}})
	require.NoError(t, err)
	assert.Len(t, resp.Customers, 3)
}

func TestListOrderingAndPaging(t *testing.T) {
	svc, _, clk := newTestService(t, config.Limits{BulkMaxEntries: 10, MaxPageSize: 2})
	seedCustomers(t, svc, clk)
	ctx := context.Background()

	resp, err := svc.List(ctx, domain.ListCustomerRequest{OrderBy: []string{"-name"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol Smithers", "Bob Stone", "Alice Smith"}, names(resp))

	resp, err = svc.List(ctx, domain.ListCustomerRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice Smith", "Bob Stone"}, names(resp))
	require.True(t, resp.HasMore)

	resp, err = svc.List(ctx, domain.ListCustomerRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: resp.NextPageToken}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol Smithers"}, names(resp))
	assert.False(t, resp.HasMore)

	_, err = svc.List(ctx, domain.ListCustomerRequest{Pagination: pagination.Pagination{PageSize: 3}})
	assert.ErrorIs(t, err, apperr.ErrInvalidValue)
}

func TestListRejectsBadQueries(t *testing.T) {
	svc, _, _ := newTestService(t, config.DefaultLimits())
	ctx := context.Background()

	_, err := svc.List(ctx, domain.ListCustomerRequest{Filters: map[string]string{"password": "x"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidValue)

	_, err = svc.List(ctx, domain.ListCustomerRequest{Filters: map[string]string{"created_from": "yesterday"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidFormat)

	_, err = svc.List(ctx, domain.ListCustomerRequest{OrderBy: []string{"secret"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidValue)
}

func TestGetByID(t *testing.T) {
	svc, _, _ := newTestService(t, config.DefaultLimits())

	_, err := svc.GetByID(context.Background(), domain.GetCustomerRequest{ID: "abc"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.GetByID(context.Background(), domain.GetCustomerRequest{ID: "12345"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
