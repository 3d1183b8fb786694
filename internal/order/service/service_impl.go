package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/crm/internal/clock"
	"github.com/smallbiznis/crm/internal/config"
	customerdomain "github.com/smallbiznis/crm/internal/customer/domain"
	"github.com/smallbiznis/crm/internal/observability/metrics"
	"github.com/smallbiznis/crm/internal/order/domain"
	productdomain "github.com/smallbiznis/crm/internal/product/domain"
	"github.com/smallbiznis/crm/pkg/db/option"
	"github.com/smallbiznis/crm/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	ProductRepo  productdomain.Repository
	Clock        clock.Clock
	Limits       *config.LimitsHolder
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	customerRepo customerdomain.Repository
	productRepo  productdomain.Repository
	clock        clock.Clock
	limits       *config.LimitsHolder
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("order.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		productRepo:  p.ProductRepo,
		clock:        p.Clock,
		limits:       p.Limits,
		metrics:      p.Metrics,
	}
}

// Create resolves the customer and products, totals their current prices and
// writes the order with its product links in one transaction. The total is
// never recomputed afterwards.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	if len(req.ProductIDs) == 0 {
		return nil, domain.ErrEmptyProducts
	}

	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID <= 0 {
		return nil, domain.ErrInvalidCustomerID
	}
	productIDs, err := parseProductIDs(req.ProductIDs)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	orderDate := now
	if req.OrderDate != nil && !req.OrderDate.IsZero() {
		orderDate = req.OrderDate.UTC()
	}

	var order domain.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByID(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrCustomerNotFound
		}

		products, err := s.productRepo.FindByIDs(ctx, tx, productIDs)
		if err != nil {
			return err
		}
		if missing := missingIDs(productIDs, products); len(missing) > 0 {
			return domain.ErrProductNotFound.WithMessage("products not found: %s", strings.Join(missing, ", "))
		}

		total := decimal.Zero
		for _, p := range products {
			total = total.Add(p.Price)
		}
		if total.GreaterThan(domain.MaxTotalAmount) {
			return domain.ErrTotalOutOfRange
		}

		order = domain.Order{
			ID:          s.genID.Generate(),
			CustomerID:  customer.ID,
			Customer:    customer,
			Products:    inRequestOrder(productIDs, products),
			TotalAmount: total,
			OrderDate:   orderDate,
			CreatedAt:   now,
		}
		if err := s.repo.Insert(ctx, tx, &order); err != nil {
			return err
		}

		links := make([]domain.OrderProduct, 0, len(productIDs))
		for _, id := range productIDs {
			links = append(links, domain.OrderProduct{OrderID: order.ID, ProductID: id})
		}
		return s.repo.InsertProducts(ctx, tx, links)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordOrderCreated(ctx)
	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("customer_id", order.CustomerID.String()),
		zap.Int("products", len(order.Products)),
	)
	resp := toResponse(&order)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	criteria, err := domain.Filters.Parse(req.Filters)
	if err != nil {
		return domain.ListResponse{}, err
	}
	sort, err := option.ParseSort(req.OrderBy, domain.SortFields)
	if err != nil {
		return domain.ListResponse{}, err
	}
	if err := option.CheckPageSize(req.Pagination, s.limits.Get().MaxPageSize); err != nil {
		return domain.ListResponse{}, err
	}
	offset, err := option.PageOffset(req.Pagination)
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Criteria: criteria,
		Sort:     sort,
	}, req.Pagination, offset)
	if err != nil {
		return domain.ListResponse{}, err
	}

	items, pageInfo := pagination.BuildPageInfo(items, req.Pagination, offset)

	orders := make([]domain.Response, 0, len(items))
	for _, item := range items {
		orders = append(orders, toResponse(item))
	}
	return domain.ListResponse{PageInfo: pageInfo, Orders: orders}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	orderID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || orderID <= 0 {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}

	resp := toResponse(item)
	return &resp, nil
}

// parseProductIDs parses ids and drops repeats, keeping first occurrence order.
func parseProductIDs(raw []string) ([]snowflake.ID, error) {
	seen := make(map[snowflake.ID]struct{}, len(raw))
	ids := make([]snowflake.ID, 0, len(raw))
	for _, value := range raw {
		id, err := snowflake.ParseString(strings.TrimSpace(value))
		if err != nil || id <= 0 {
			return nil, domain.ErrInvalidProductID.WithMessage("invalid product id %q", value)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func missingIDs(want []snowflake.ID, found []*productdomain.Product) []string {
	have := make(map[snowflake.ID]struct{}, len(found))
	for _, p := range found {
		have[p.ID] = struct{}{}
	}
	missing := make([]string, 0)
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id.String())
		}
	}
	return missing
}

func inRequestOrder(ids []snowflake.ID, products []*productdomain.Product) []*productdomain.Product {
	byID := make(map[snowflake.ID]*productdomain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	out := make([]*productdomain.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func toResponse(o *domain.Order) domain.Response {
	resp := domain.Response{
		ID:          o.ID.String(),
		CustomerID:  o.CustomerID.String(),
		Products:    make([]domain.ProductSummary, 0, len(o.Products)),
		TotalAmount: o.TotalAmount.StringFixed(2),
		OrderDate:   o.OrderDate,
		CreatedAt:   o.CreatedAt,
	}
	if o.Customer != nil {
		resp.Customer = &domain.CustomerSummary{
			ID:    o.Customer.ID.String(),
			Name:  o.Customer.Name,
			Email: o.Customer.Email,
		}
	}
	for _, p := range o.Products {
		resp.Products = append(resp.Products, domain.ProductSummary{
			ID:    p.ID.String(),
			Name:  p.Name,
			Price: p.Price.StringFixed(2),
		})
	}
	return resp
}
