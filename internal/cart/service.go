package cart

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-shop-payments/internal/apperr"
	"github.com/ariefcatur/go-shop-payments/internal/catalog"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Store interface {
	Find(ctx context.Context, userID, productID string) (Item, bool, error)
	Insert(ctx context.Context, it Item) error
	SetQuantity(ctx context.Context, id string, qty int) error
	ListByUser(ctx context.Context, userID string) ([]Item, error)
	DeleteByUser(ctx context.Context, userID string) error
}

type ProductReader interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
}

type Service struct {
	store    Store
	products ProductReader
	log      *zap.Logger
}

func NewService(store Store, products ProductReader, log *zap.Logger) *Service {
	return &Service{store: store, products: products, log: log}
}

// AddToCart creates the user's line for productID or merges quantity into
// the existing one. Stock is checked against the merged quantity.
func (s *Service) AddToCart(ctx context.Context, userID, productID string, quantity int) (Item, error) {
	if quantity < 1 {
		return Item{}, apperr.Validation("quantity must be at least 1")
	}
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return Item{}, err
	}
	if p.Stock < quantity {
		return Item{}, apperr.InsufficientStock("insufficient stock for product %s: available %d", p.Name, p.Stock)
	}

	existing, found, err := s.store.Find(ctx, userID, productID)
	if err != nil {
		return Item{}, err
	}
	if found {
		merged := existing.Quantity + quantity
		if p.Stock < merged {
			return Item{}, apperr.InsufficientStock("insufficient stock for product %s: available %d", p.Name, p.Stock)
		}
		if err := s.store.SetQuantity(ctx, existing.ID, merged); err != nil {
			return Item{}, err
		}
		existing.Quantity = merged
		s.log.Info("cart item quantity updated",
			zap.String("user_id", userID), zap.String("product_id", productID), zap.Int("quantity", merged))
		return existing, nil
	}

	it := Item{ID: uuid.NewString(), UserID: userID, ProductID: productID, Quantity: quantity}
	if err := s.store.Insert(ctx, it); err != nil {
		return Item{}, err
	}
	s.log.Info("cart item created",
		zap.String("user_id", userID), zap.String("product_id", productID), zap.Int("quantity", quantity))
	return it, nil
}

// GetCartItems lists the user's cart with the current product attached.
// A product that no longer exists is left off its line rather than failing.
func (s *Service) GetCartItems(ctx context.Context, userID string) ([]ItemView, error) {
	items, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ItemView, 0, len(items))
	for _, it := range items {
		v := ItemView{Item: it}
		p, err := s.products.Get(ctx, it.ProductID)
		switch {
		case err == nil:
			v.Product = &p
		case errors.Is(err, apperr.ErrNotFound):
			s.log.Warn("product not found for cart item", zap.String("product_id", it.ProductID))
		default:
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Items returns the raw cart lines; used by checkout.
func (s *Service) Items(ctx context.Context, userID string) ([]Item, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) ClearCart(ctx context.Context, userID string) error {
	if err := s.store.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	s.log.Info("cart cleared", zap.String("user_id", userID))
	return nil
}
