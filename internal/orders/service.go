package orders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ariefcatur/go-shop-payments/internal/apperr"
	"github.com/ariefcatur/go-shop-payments/internal/cart"
	"github.com/ariefcatur/go-shop-payments/internal/catalog"
	"github.com/ariefcatur/go-shop-payments/internal/logx"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Store interface {
	Insert(ctx context.Context, o Order) error
	Get(ctx context.Context, orderID string) (Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	UpdateStatus(ctx context.Context, orderID string, status Status, at time.Time) error
}

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Cart interface {
	Items(ctx context.Context, userID string) ([]cart.Item, error)
	ClearCart(ctx context.Context, userID string) error
}

type Stock interface {
	GetProductForUpdate(ctx context.Context, id string) (catalog.Product, error)
	UpdateStock(ctx context.Context, productID string, delta int) (int, error)
}

type PaymentLookup interface {
	FindByOrderID(ctx context.Context, orderID string) (Payment, bool, error)
}

// StatusCache is a read-through cache of order status.
type StatusCache interface {
	SetStatus(ctx context.Context, orderID, status string) error
	GetStatus(ctx context.Context, orderID string) (string, bool, error)
	DeleteStatus(ctx context.Context, orderID string) error
}

type Deps struct {
	Tx          TxRunner
	Store       Store
	Cart        Cart
	Stock       Stock
	Payments    PaymentLookup
	Cache       StatusCache
	Events      Publisher
	ServiceName string
	Log         *zap.Logger
}

type Service struct {
	Deps
	now func() time.Time
}

func NewService(d Deps) *Service {
	return &Service{Deps: d, now: time.Now}
}

// CreateOrder checks out the user's cart. Stock is re-validated against the
// locked product rows, so this check wins over the one done at add-to-cart.
// Order insert, stock decrement and cart clear share one transaction.
// Product rows are locked in product id order.
func (s *Service) CreateOrder(ctx context.Context, userID string) (Order, error) {
	log := logx.Ctx(ctx, s.Log)
	var order Order

	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		lines, err := s.Cart.Items(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return apperr.EmptyCart(userID)
		}
		sort.SliceStable(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

		items := make([]OrderItem, 0, len(lines))
		total := decimal.Zero
		for _, l := range lines {
			p, err := s.Stock.GetProductForUpdate(ctx, l.ProductID)
			if err != nil {
				return err
			}
			if p.Stock < l.Quantity {
				return apperr.InsufficientStock("insufficient stock for product %s: available %d, required %d",
					p.Name, p.Stock, l.Quantity)
			}
			it := OrderItem{ProductID: p.ID, ProductName: p.Name, Quantity: l.Quantity, Price: p.Price}
			items = append(items, it)
			total = total.Add(it.Subtotal())
		}

		now := s.now().UTC()
		order = Order{
			ID:          uuid.NewString(),
			UserID:      userID,
			TotalAmount: total,
			Status:      StatusCreated,
			CreatedAt:   now,
			UpdatedAt:   now,
			Items:       items,
		}
		if err := s.Store.Insert(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, l := range lines {
			if _, err := s.Stock.UpdateStock(ctx, l.ProductID, -l.Quantity); err != nil {
				return err
			}
		}
		return s.Cart.ClearCart(ctx, userID)
	})
	if err != nil {
		return Order{}, err
	}

	log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)
	s.cacheStatus(ctx, order.ID, order.Status)
	Emit(s.Events, TopicOrderCreated, EventOrderCreated, s.ServiceName, middleware.GetReqID(ctx), order.ID,
		OrderCreatedPayload{
			OrderID:     order.ID,
			UserID:      userID,
			Items:       toItemPrices(order.Items),
			TotalAmount: order.TotalAmount,
		})
	return order, nil
}

// GetOrderByID returns the order with its payment attached when one exists.
func (s *Service) GetOrderByID(ctx context.Context, orderID string) (Detail, error) {
	o, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{Order: o}
	if s.Payments != nil {
		p, found, err := s.Payments.FindByOrderID(ctx, orderID)
		if err != nil {
			return Detail{}, err
		}
		if found {
			d.Payment = &p
		}
	}
	return d, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (Order, error) {
	return s.Store.Get(ctx, orderID)
}

func (s *Service) GetUserOrders(ctx context.Context, userID string) ([]Order, error) {
	return s.Store.ListByUser(ctx, userID)
}

// UpdateOrderStatus overwrites the status. Repeating the same call is harmless.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status Status) error {
	if !status.Valid() {
		return apperr.Validation(fmt.Sprintf("unknown order status %q", status))
	}
	if err := s.Store.UpdateStatus(ctx, orderID, status, s.now().UTC()); err != nil {
		return err
	}
	logx.Ctx(ctx, s.Log).Info("order status updated", zap.String("order_id", orderID), zap.String("status", string(status)))
	s.cacheStatus(ctx, orderID, status)
	return nil
}

// GetOrderStatus reads through the status cache.
func (s *Service) GetOrderStatus(ctx context.Context, orderID string) (Status, error) {
	if s.Cache != nil {
		if st, ok, err := s.Cache.GetStatus(ctx, orderID); err == nil && ok {
			return Status(st), nil
		}
	}
	o, err := s.Store.Get(ctx, orderID)
	if err != nil {
		return "", err
	}
	s.cacheStatus(ctx, orderID, o.Status)
	return o.Status, nil
}

// ForgetStatus drops the cached status, e.g. after a rolled back update.
func (s *Service) ForgetStatus(ctx context.Context, orderID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.DeleteStatus(ctx, orderID); err != nil {
		logx.Ctx(ctx, s.Log).Warn("order status cache delete failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *Service) cacheStatus(ctx context.Context, orderID string, status Status) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.SetStatus(ctx, orderID, string(status)); err != nil {
		logx.Ctx(ctx, s.Log).Warn("order status cache write failed", zap.String("order_id", orderID), zap.Error(err))
	}
}
