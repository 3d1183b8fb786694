package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/crm/internal/order/domain"
	"github.com/smallbiznis/crm/pkg/db/option"
	"github.com/smallbiznis/crm/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (id, customer_id, total_amount, order_date, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		order.ID,
		order.CustomerID,
		order.TotalAmount,
		order.OrderDate,
		order.CreatedAt,
	).Error
}

func (r *repo) InsertProducts(ctx context.Context, db *gorm.DB, links []domain.OrderProduct) error {
	if len(links) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&links).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := withRelations(db.WithContext(ctx)).
		Where("orders.id = ?", id).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination, offset int) ([]*domain.Order, error) {
	var orders []*domain.Order
	stmt := withRelations(db.WithContext(ctx)).Model(&domain.Order{})
	stmt = filter.Criteria.Apply(stmt)
	stmt = option.WithSort(filter.Sort, "id").Apply(stmt)
	stmt = option.ApplyPagination(page, offset).Apply(stmt)

	if err := stmt.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Customer").
		Preload("Products", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("products.id")
		})
}
