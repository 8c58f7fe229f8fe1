package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/ariefcatur/go-shop-payments/internal/apperr"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the persistence the catalog needs; *Repo implements it.
type Store interface {
	Insert(ctx context.Context, p Product) error
	Get(ctx context.Context, id string) (Product, error)
	GetForUpdate(ctx context.Context, id string) (Product, error)
	List(ctx context.Context) ([]Product, error)
	Search(ctx context.Context, query string) ([]Product, error)
	AddStock(ctx context.Context, id string, delta int) (int, error)
}

type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log, now: time.Now}
}

func (s *Service) CreateProduct(ctx context.Context, in NewProduct) (Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Product{}, apperr.Validation("product name is required")
	}
	if in.Price.IsNegative() {
		return Product{}, apperr.Validation("price must not be negative")
	}
	if in.Stock < 0 {
		return Product{}, apperr.Validation("stock must not be negative")
	}
	now := s.now().UTC()
	p := Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, p); err != nil {
		return Product{}, err
	}
	s.log.Info("product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.store.List(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	return s.store.Get(ctx, id)
}

// GetProductForUpdate locks the product row for the caller's transaction.
func (s *Service) GetProductForUpdate(ctx context.Context, id string) (Product, error) {
	return s.store.GetForUpdate(ctx, id)
}

func (s *Service) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	return s.store.Search(ctx, strings.TrimSpace(query))
}

// UpdateStock adds delta (negative to decrement). A result below zero fails
// with InsufficientStock and leaves the product untouched.
func (s *Service) UpdateStock(ctx context.Context, productID string, delta int) (int, error) {
	stock, err := s.store.AddStock(ctx, productID, delta)
	if err != nil {
		return 0, err
	}
	s.log.Info("stock updated",
		zap.String("product_id", productID),
		zap.Int("delta", delta),
		zap.Int("stock", stock),
	)
	return stock, nil
}
