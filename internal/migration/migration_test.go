package migration

import (
	"io/fs"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/crm/internal/customer/domain"
	orderdomain "github.com/smallbiznis/crm/internal/order/domain"
	productdomain "github.com/smallbiznis/crm/internal/product/domain"
	"github.com/smallbiznis/crm/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.down.sql")
	require.NoError(t, err)

	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestAutoMigrateCreatesSchema(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, AutoMigrate(db))

	for _, table := range []string{"customers", "products", "orders", "order_products"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasIndex("customers", "ux_customers_email"))
}

func TestDeletingCustomerRemovesOrdersAndLinks(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, AutoMigrate(db))

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	customer := customerdomain.Customer{ID: 1, Name: "Ada", Email: "ada@example.com", CreatedAt: now, UpdatedAt: now}
	product := productdomain.Product{ID: 2, Name: "Widget", Price: decimal.RequireFromString("10.00"), CreatedAt: now, UpdatedAt: now}
	order := orderdomain.Order{ID: 3, CustomerID: customer.ID, TotalAmount: product.Price, OrderDate: now, CreatedAt: now}
	require.NoError(t, db.Create(&customer).Error)
	require.NoError(t, db.Create(&product).Error)
	require.NoError(t, db.Create(&order).Error)
	require.NoError(t, db.Create(&orderdomain.OrderProduct{OrderID: order.ID, ProductID: product.ID}).Error)

	require.NoError(t, db.Where("id = ?", customer.ID).Delete(&customerdomain.Customer{}).Error)

	count := func(model any) int64 {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return n
	}
	assert.Zero(t, count(&orderdomain.Order{}))
	assert.Zero(t, count(&orderdomain.OrderProduct{}))
	assert.EqualValues(t, 1, count(&productdomain.Product{}))
}
