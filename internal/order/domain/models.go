package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/crm/internal/customer/domain"
	productdomain "github.com/smallbiznis/crm/internal/product/domain"
)

type Order struct {
	ID          snowflake.ID             `json:"id" gorm:"primaryKey;autoIncrement:false"`
	CustomerID  snowflake.ID             `json:"customer_id" gorm:"not null;index"`
	Customer    *customerdomain.Customer `json:"customer,omitempty" gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	Products    []*productdomain.Product `json:"products,omitempty" gorm:"many2many:order_products;constraint:OnDelete:CASCADE"`
	TotalAmount decimal.Decimal          `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	OrderDate   time.Time                `json:"order_date" gorm:"not null;index"`
	CreatedAt   time.Time                `json:"created_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

// OrderProduct links an order to a product. The composite key keeps a
// product from appearing twice on one order.
type OrderProduct struct {
	OrderID   snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	ProductID snowflake.ID `gorm:"primaryKey;autoIncrement:false;index"`
}

func (OrderProduct) TableName() string { return "order_products" }
