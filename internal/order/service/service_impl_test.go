package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crm/internal/apperr"
	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/config"
	customerdomain "github.com/smallbiznis/crm/internal/customer/domain"
	customerrepo "github.com/smallbiznis/crm/internal/customer/repository"
	"github.com/smallbiznis/crm/internal/migration"
	"github.com/smallbiznis/crm/internal/order/domain"
	"github.com/smallbiznis/crm/internal/order/repository"
	productdomain "github.com/smallbiznis/crm/internal/product/domain"
	productrepo "github.com/smallbiznis/crm/internal/product/repository"
	"github.com/smallbiznis/crm/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *Service
	db    *gorm.DB
	clock *clock.FakeClock
	node  *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	clk := clock.NewFakeClock(epoch)
	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Repo:         repository.Provide(),
		CustomerRepo: customerrepo.Provide(),
		ProductRepo:  productrepo.Provide(),
		Clock:        clk,
		Limits:       config.NewStaticLimitsHolder(config.DefaultLimits()),
	}).(*Service)

	return &fixture{svc: svc, db: db, clock: clk, node: node}
}

func (f *fixture) customer(t *testing.T, name, email string) customerdomain.Customer {
	t.Helper()
	c := customerdomain.Customer{
		ID:        f.node.Generate(),
		Name:      name,
		Email:     email,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, customerrepo.Provide().Insert(context.Background(), f.db, &c))
	return c
}

func (f *fixture) product(t *testing.T, name, price string) productdomain.Product {
	t.Helper()
	p := productdomain.Product{
		ID:        f.node.Generate(),
		Name:      name,
		Price:     decimal.RequireFromString(price),
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, productrepo.Provide().Create(context.Background(), f.db, &p))
	return p
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func productIDs(resp *domain.Response) []string {
	out := make([]string, 0, len(resp.Products))
	for _, p := range resp.Products {
		out = append(out, p.ID)
	}
	return out
}

func TestCreateOrderTotalsProducts(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Ann", "ann@example.com")
	p1 := f.product(t, "Lamp", "10.00")
	p2 := f.product(t, "Desk", "15.00")

	resp, err := f.svc.Create(context.Background(), domain.CreateRequest{
		CustomerID: c.ID.String(),
		ProductIDs: []string{p1.ID.String(), p2.ID.String(), p1.ID.String()},
	})
	require.NoError(t, err)
	assert.Equal(t, "25.00", resp.TotalAmount)
	assert.Equal(t, epoch, resp.OrderDate)
	assert.Equal(t, []string{p1.ID.String(), p2.ID.String()}, productIDs(resp))
	require.NotNil(t, resp.Customer)
	assert.Equal(t, "Ann", resp.Customer.Name)
	assert.Equal(t, int64(2), f.count(t, &domain.OrderProduct{}))

	got, err := f.svc.Get(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "25.00", got.TotalAmount)
	assert.ElementsMatch(t, []string{p1.ID.String(), p2.ID.String()}, productIDs(got))
	assert.Equal(t, c.ID.String(), got.Customer.ID)
}

func TestCreateOrderUsesRequestedDate(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Ann", "ann@example.com")
	p := f.product(t, "Lamp", "10.00")

	when := time.Date(2023, 12, 24, 18, 30, 0, 0, time.FixedZone("WIB", 7*3600))
	resp, err := f.svc.Create(context.Background(), domain.CreateRequest{
		CustomerID: c.ID.String(),
		ProductIDs: []string{p.ID.String()},
		OrderDate:  &when,
	})
	require.NoError(t, err)
	assert.True(t, when.Equal(resp.OrderDate))
	assert.Equal(t, time.UTC, resp.OrderDate.Location())
}

func TestCreateOrderRejectsEmptyProducts(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Ann", "ann@example.com")

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{CustomerID: c.ID.String()})
	assert.ErrorIs(t, err, domain.ErrEmptyProducts)
	assert.ErrorIs(t, err, apperr.ErrInvalidValue)
	assert.Zero(t, f.count(t, &domain.Order{}))
}

func TestCreateOrderResolvesReferences(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Ann", "ann@example.com")
	p := f.product(t, "Lamp", "10.00")
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateRequest{CustomerID: "999", ProductIDs: []string{p.ID.String()}})
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = f.svc.Create(ctx, domain.CreateRequest{CustomerID: c.ID.String(), ProductIDs: []string{p.ID.String(), "777"}})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Contains(t, err.Error(), "777")

	_, err = f.svc.Create(ctx, domain.CreateRequest{CustomerID: "ann", ProductIDs: []string{p.ID.String()}})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomerID)

	_, err = f.svc.Create(ctx, domain.CreateRequest{CustomerID: c.ID.String(), ProductIDs: []string{"lamp"}})
	assert.ErrorIs(t, err, apperr.ErrInvalidFormat)

	assert.Zero(t, f.count(t, &domain.Order{}))
	assert.Zero(t, f.count(t, &domain.OrderProduct{}))
}

func TestOrderTotalIsNotRecomputed(t *testing.T) {
	f := newFixture(t)
	c := f.customer(t, "Ann", "ann@example.com")
	p := f.product(t, "Lamp", "10.00")

	resp, err := f.svc.Create(context.Background(), domain.CreateRequest{
		CustomerID: c.ID.String(),
		ProductIDs: []string{p.ID.String()},
	})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&productdomain.Product{}).Where("id = ?", p.ID).Update("price", decimal.RequireFromString("99.00")).Error)

	got, err := f.svc.Get(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", got.TotalAmount)
}

func TestListOrderFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ann := f.customer(t, "Ann Lee", "ann@example.com")
	bob := f.customer(t, "Bob Ray", "bob@example.com")
	widgetA := f.product(t, "Blue Widget", "5.00")
	widgetB := f.product(t, "Red Widget", "7.00")
	gadget := f.product(t, "Gadget", "20.00")

	first, err := f.svc.Create(ctx, domain.CreateRequest{
		CustomerID: ann.ID.String(),
		ProductIDs: []string{widgetA.ID.String(), widgetB.ID.String()},
	})
	require.NoError(t, err)
	f.clock.Advance(24 * time.Hour)

	second, err := f.svc.Create(ctx, domain.CreateRequest{
		CustomerID: bob.ID.String(),
		ProductIDs: []string{gadget.ID.String()},
	})
	require.NoError(t, err)

	ids := func(resp domain.ListResponse) []string {
		out := make([]string, 0, len(resp.Orders))
		for _, o := range resp.Orders {
			out = append(out, o.ID)
		}
		return out
	}

	// both linked products match, the order must still come back once
	resp, err := f.svc.List(ctx, domain.ListRequest{Filters: map[string]string{"product_name": "widget"}})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, ids(resp))
	assert.Len(t, resp.Orders[0].Products, 2)

	resp, err = f.svc.List(ctx, domain.ListRequest{Filters: map[string]string{"customer_name": "BOB"}})
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, ids(resp))

	resp, err = f.svc.List(ctx, domain.ListRequest{Filters: map[string]string{"product_id": gadget.ID.String()}})
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, ids(resp))

	resp, err = f.svc.List(ctx, domain.ListRequest{Filters: map[string]string{"total_min": "12", "total_max": "12.00"}})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, ids(resp))

	resp, err = f.svc.List(ctx, domain.ListRequest{Filters: map[string]string{"ordered_from": "2024-06-02"}})
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, ids(resp))

	resp, err = f.svc.List(ctx, domain.ListRequest{OrderBy: []string{"-total_amount"}})
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, ids(resp))

	resp, err = f.svc.List(ctx, domain.ListRequest{Filters: map[string]string{"customer_name": "ann", "product_name": "gadget"}})
	require.NoError(t, err)
	assert.Empty(t, resp.Orders)
}

func TestGetOrderNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), "123")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
