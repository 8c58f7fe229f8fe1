// Package memstore keeps catalog, cart, order and payment rows in memory.
// It satisfies the same store interfaces as the Postgres repositories and
// backs the service tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ariefcatur/go-shop-payments/internal/apperr"
	"github.com/ariefcatur/go-shop-payments/internal/cart"
	"github.com/ariefcatur/go-shop-payments/internal/catalog"
	"github.com/ariefcatur/go-shop-payments/internal/orders"
)

type cartRow struct {
	cart.Item
	seq int
}

type paymentRow struct {
	orders.Payment
	seq int
}

type tables struct {
	products map[string]catalog.Product
	cart     map[string]cartRow
	orders   map[string]orders.Order
	payments map[string]paymentRow
}

func (t tables) clone() tables {
	c := tables{
		products: make(map[string]catalog.Product, len(t.products)),
		cart:     make(map[string]cartRow, len(t.cart)),
		orders:   make(map[string]orders.Order, len(t.orders)),
		payments: make(map[string]paymentRow, len(t.payments)),
	}
	for k, v := range t.products {
		c.products[k] = v
	}
	for k, v := range t.cart {
		c.cart[k] = v
	}
	for k, v := range t.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range t.payments {
		v.Payment = copyPayment(v.Payment)
		c.payments[k] = v
	}
	return c
}

type DB struct {
	mu   sync.Mutex
	txMu sync.Mutex
	seq  int
	t    tables
}

func New() *DB {
	return &DB{t: tables{}.clone()}
}

func (db *DB) Products() *Products { return &Products{db: db} }
func (db *DB) Cart() *Cart         { return &Cart{db: db} }
func (db *DB) Orders() *Orders     { return &Orders{db: db} }
func (db *DB) Payments() *Payments { return &Payments{db: db} }

type txKey struct{}

// WithinTx serializes transactions and restores a snapshot when fn fails.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	snapshot := db.t.clone()
	db.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		db.mu.Lock()
		db.t = snapshot
		db.mu.Unlock()
		return err
	}
	return nil
}

func (db *DB) next() int {
	db.seq++
	return db.seq
}

type Products struct{ db *DB }

func (s *Products) Insert(_ context.Context, p catalog.Product) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.t.products[p.ID] = p
	return nil
}

func (s *Products) Get(_ context.Context, id string) (catalog.Product, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.t.products[id]
	if !ok {
		return catalog.Product{}, apperr.NotFound("product %s not found", id)
	}
	return p, nil
}

func (s *Products) GetForUpdate(ctx context.Context, id string) (catalog.Product, error) {
	return s.Get(ctx, id)
}

func (s *Products) List(_ context.Context) ([]catalog.Product, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]catalog.Product, 0, len(s.db.t.products))
	for _, p := range s.db.t.products {
		out = append(out, p)
	}
	sortProducts(out)
	return out, nil
}

func (s *Products) Search(_ context.Context, query string) ([]catalog.Product, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	q := strings.ToLower(query)
	out := []catalog.Product{}
	for _, p := range s.db.t.products {
		if strings.Contains(strings.ToLower(p.Name), q) {
			out = append(out, p)
		}
	}
	sortProducts(out)
	return out, nil
}

func (s *Products) AddStock(_ context.Context, id string, delta int) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.t.products[id]
	if !ok {
		return 0, apperr.NotFound("product %s not found", id)
	}
	if p.Stock+delta < 0 {
		return 0, apperr.InsufficientStock("insufficient stock for product %s: available %d, requested %d", p.Name, p.Stock, -delta)
	}
	p.Stock += delta
	p.UpdatedAt = time.Now().UTC()
	s.db.t.products[id] = p
	return p.Stock, nil
}

func sortProducts(ps []catalog.Product) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].Name < ps[j].Name
		}
		return ps[i].CreatedAt.Before(ps[j].CreatedAt)
	})
}

type Cart struct{ db *DB }

func (s *Cart) Find(_ context.Context, userID, productID string) (cart.Item, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range s.db.t.cart {
		if r.UserID == userID && r.ProductID == productID {
			return r.Item, true, nil
		}
	}
	return cart.Item{}, false, nil
}

func (s *Cart) Insert(_ context.Context, it cart.Item) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.t.cart[it.ID] = cartRow{Item: it, seq: s.db.next()}
	return nil
}

func (s *Cart) SetQuantity(_ context.Context, id string, qty int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.t.cart[id]
	if !ok {
		return apperr.NotFound("cart item %s not found", id)
	}
	r.Quantity = qty
	s.db.t.cart[id] = r
	return nil
}

func (s *Cart) ListByUser(_ context.Context, userID string) ([]cart.Item, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	rows := []cartRow{}
	for _, r := range s.db.t.cart {
		if r.UserID == userID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]cart.Item, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Item)
	}
	return out, nil
}

func (s *Cart) DeleteByUser(_ context.Context, userID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for id, r := range s.db.t.cart {
		if r.UserID == userID {
			delete(s.db.t.cart, id)
		}
	}
	return nil
}

type Orders struct{ db *DB }

func (s *Orders) Insert(_ context.Context, o orders.Order) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.t.orders[o.ID] = copyOrder(o)
	return nil
}

func (s *Orders) Get(_ context.Context, orderID string) (orders.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	o, ok := s.db.t.orders[orderID]
	if !ok {
		return orders.Order{}, apperr.NotFound("order %s not found", orderID)
	}
	return copyOrder(o), nil
}

func (s *Orders) ListByUser(_ context.Context, userID string) ([]orders.Order, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []orders.Order{}
	for _, o := range s.db.t.orders {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Orders) UpdateStatus(_ context.Context, orderID string, status orders.Status, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	o, ok := s.db.t.orders[orderID]
	if !ok {
		return apperr.NotFound("order %s not found", orderID)
	}
	o.Status = status
	o.UpdatedAt = at
	s.db.t.orders[orderID] = o
	return nil
}

func copyOrder(o orders.Order) orders.Order {
	o.Items = append([]orders.OrderItem(nil), o.Items...)
	return o
}

type Payments struct{ db *DB }

func (s *Payments) Insert(_ context.Context, p orders.Payment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.t.payments[p.ID] = paymentRow{Payment: copyPayment(p), seq: s.db.next()}
	return nil
}

func (s *Payments) FindByOrderID(_ context.Context, orderID string) (orders.Payment, bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var (
		best  paymentRow
		found bool
	)
	for _, r := range s.db.t.payments {
		if r.OrderID == orderID && (!found || r.seq > best.seq) {
			best, found = r, true
		}
	}
	return copyPayment(best.Payment), found, nil
}

func (s *Payments) FindByExternalOrderID(_ context.Context, externalOrderID string) (orders.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, r := range s.db.t.payments {
		if r.ExternalOrderID == externalOrderID {
			return copyPayment(r.Payment), nil
		}
	}
	return orders.Payment{}, apperr.NotFound("payment not found for gateway order %s", externalOrderID)
}

func (s *Payments) Resolve(_ context.Context, paymentID string, status orders.PaymentStatus, externalPaymentID *string, at time.Time) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.t.payments[paymentID]
	if !ok || r.Status != orders.PaymentPending {
		return false, nil
	}
	r.Status = status
	if externalPaymentID != nil {
		id := *externalPaymentID
		r.ExternalPaymentID = &id
	}
	r.UpdatedAt = at
	s.db.t.payments[paymentID] = r
	return true, nil
}

func copyPayment(p orders.Payment) orders.Payment {
	if p.ExternalPaymentID != nil {
		id := *p.ExternalPaymentID
		p.ExternalPaymentID = &id
	}
	return p
}
