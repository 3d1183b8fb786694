package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/crm/internal/apperr"
	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/config"
	"github.com/smallbiznis/crm/internal/customer/domain"
	"github.com/smallbiznis/crm/internal/observability/metrics"
	"github.com/smallbiznis/crm/internal/validation"
	pkgdb "github.com/smallbiznis/crm/pkg/db"
	"github.com/smallbiznis/crm/pkg/db/option"
	"github.com/smallbiznis/crm/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Clock     clock.Clock
	Validator *validation.Validator
	Limits    *config.LimitsHolder
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	clock     clock.Clock
	validator *validation.Validator
	limits    *config.LimitsHolder
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("customer.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		clock:     p.Clock,
		validator: p.Validator,
		limits:    p.Limits,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	customer, err := s.create(ctx, s.db, req)
	if err != nil {
		return domain.Customer{}, err
	}

	s.metrics.RecordCustomersCreated(ctx, "single", 1)
	return customer, nil
}

// BulkCreate writes the batch in one transaction. Each entry runs inside its
// own savepoint: a business-rule rejection rolls back only that entry and is
// reported, anything else aborts the whole batch.
func (s *Service) BulkCreate(ctx context.Context, req domain.BulkCreateCustomersRequest) (domain.BulkCreateCustomersResponse, error) {
	if len(req.Customers) == 0 {
		return domain.BulkCreateCustomersResponse{}, domain.ErrEmptyBatch
	}
	if limit := s.limits.Get().BulkMaxEntries; len(req.Customers) > limit {
		return domain.BulkCreateCustomersResponse{}, domain.ErrBatchTooLarge.WithMessage("at most %d customers can be created in one batch", limit)
	}

	resp := domain.BulkCreateCustomersResponse{
		Customers: make([]domain.Customer, 0, len(req.Customers)),
		Errors:    []string{},
	}
	rejected := make([]apperr.Kind, 0)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, entry := range req.Customers {
			savepoint := fmt.Sprintf("bulk_customer_%d", i)
			if err := tx.SavePoint(savepoint).Error; err != nil {
				return err
			}

			customer, err := s.create(ctx, tx, entry)
			if err == nil {
				resp.Customers = append(resp.Customers, customer)
				continue
			}
			if !apperr.IsBusinessRule(err) {
				return err
			}

			if err := tx.RollbackTo(savepoint).Error; err != nil {
				return err
			}
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %s", strings.TrimSpace(entry.Email), err.Error()))
			rejected = append(rejected, apperr.KindOf(err))
		}
		return nil
	})
	if err != nil {
		s.log.Error("bulk customer create aborted",
			zap.Int("entries", len(req.Customers)),
			zap.Error(err),
		)
		return domain.BulkCreateCustomersResponse{}, err
	}

	s.metrics.RecordCustomersCreated(ctx, "bulk", len(resp.Customers))
	for _, kind := range rejected {
		s.metrics.RecordBulkEntryRejected(ctx, string(kind))
	}
	s.log.Info("bulk customer create finished",
		zap.Int("created", len(resp.Customers)),
		zap.Int("rejected", len(resp.Errors)),
	)
	return resp, nil
}

func (s *Service) create(ctx context.Context, db *gorm.DB, req domain.CreateCustomerRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := s.validator.Struct(req); err != nil {
		return domain.Customer{}, err
	}

	exists, err := s.repo.EmailExists(ctx, db, req.Email)
	if err != nil {
		return domain.Customer{}, err
	}
	if exists {
		return domain.Customer{}, domain.ErrDuplicateEmail
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, db, &customer); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.Customer{}, domain.ErrDuplicateEmail
		}
		return domain.Customer{}, err
	}

	return customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	criteria, err := domain.Filters.Parse(req.Filters)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}
	sort, err := option.ParseSort(req.OrderBy, domain.SortFields)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}
	if err := option.CheckPageSize(req.Pagination, s.limits.Get().MaxPageSize); err != nil {
		return domain.ListCustomerResponse{}, err
	}
	offset, err := option.PageOffset(req.Pagination)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	items, err := s.repo.List(ctx, s.db, domain.ListCustomerFilter{
		Criteria: criteria,
		Sort:     sort,
	}, req.Pagination, offset)
	if err != nil {
		return domain.ListCustomerResponse{}, err
	}

	items, pageInfo := pagination.BuildPageInfo(items, req.Pagination, offset)

	customers := make([]domain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		customers = append(customers, *item)
	}

	return domain.ListCustomerResponse{
		PageInfo:  pageInfo,
		Customers: customers,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
