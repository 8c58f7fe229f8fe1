package payments_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-shop-payments/internal/apperr"
	"github.com/ariefcatur/go-shop-payments/internal/memstore"
	"github.com/ariefcatur/go-shop-payments/internal/orders"
	"github.com/ariefcatur/go-shop-payments/internal/payments"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "test_secret"

type fakeGateway struct {
	mu   sync.Mutex
	err  error
	reqs []payments.GatewayOrderRequest
}

func (g *fakeGateway) CreateOrder(_ context.Context, req payments.GatewayOrderRequest) (payments.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return payments.GatewayOrder{}, g.err
	}
	g.reqs = append(g.reqs, req)
	return payments.GatewayOrder{ID: fmt.Sprintf("order_%d", len(g.reqs)), Status: "created"}, nil
}

// failingOrders breaks the order status update to force a rollback.
type failingOrders struct {
	payments.Orders
}

func (failingOrders) UpdateOrderStatus(context.Context, string, orders.Status) error {
	return errors.New("db down")
}

type fixture struct {
	db       *memstore.DB
	orders   *orders.Service
	gateway  *fakeGateway
	events   *memstore.Events
	payments *payments.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := memstore.New()
	log := zap.NewNop()
	f := fixture{db: db, gateway: &fakeGateway{}, events: &memstore.Events{}}
	f.orders = orders.NewService(orders.Deps{Tx: db, Store: db.Orders(), Payments: db.Payments(), Log: log})
	f.payments = f.newPayments(f.orders)
	return f
}

func (f fixture) newPayments(o payments.Orders) *payments.Service {
	return payments.NewService(payments.Deps{
		Tx:          f.db,
		Store:       f.db.Payments(),
		Orders:      o,
		Gateway:     f.gateway,
		Signer:      payments.NewSigner(secret),
		Events:      f.events,
		KeyID:       "rzp_test_key",
		Currency:    "INR",
		ServiceName: "shop-api",
		Log:         zap.NewNop(),
	})
}

func (f fixture) order(t *testing.T, status orders.Status, total string) orders.Order {
	t.Helper()
	o := orders.Order{
		ID:          fmt.Sprintf("o-%d", time.Now().UnixNano()),
		UserID:      "u1",
		TotalAmount: decimal.RequireFromString(total),
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.db.Orders().Insert(context.Background(), o))
	return o
}

func (f fixture) orderStatus(t *testing.T, id string) orders.Status {
	t.Helper()
	o, err := f.orders.GetOrder(context.Background(), id)
	require.NoError(t, err)
	return o.Status
}

func (f fixture) payment(t *testing.T, orderID string) orders.Payment {
	t.Helper()
	p, found, err := f.db.Payments().FindByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	require.True(t, found)
	return p
}

func captured(extOrderID, extPaymentID, status string) payments.GatewayEvent {
	return payments.GatewayEvent{
		Event:             payments.EventPaymentCaptured,
		ExternalOrderID:   extOrderID,
		ExternalPaymentID: extPaymentID,
		Status:            status,
	}
}

func TestCreatePayment(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, orders.StatusCreated, "100")

	c, err := f.payments.CreatePayment(context.Background(), o.ID, decimal.RequireFromString("100.559"))
	require.NoError(t, err)

	assert.Equal(t, orders.PaymentPending, c.Status)
	assert.Equal(t, "order_1", c.ExternalOrderID)
	assert.Equal(t, int64(10055), c.AmountMinor)
	assert.Equal(t, "INR", c.Currency)
	assert.Equal(t, "rzp_test_key", c.KeyID)
	assert.Nil(t, c.ExternalPaymentID)

	require.Len(t, f.gateway.reqs, 1)
	assert.Equal(t, o.ID, f.gateway.reqs[0].Receipt)
	assert.Equal(t, c.ID, f.gateway.reqs[0].PaymentID)

	stored := f.payment(t, o.ID)
	assert.Equal(t, c.ID, stored.ID)
}

func TestCreatePaymentDefaultsToOrderTotal(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, orders.StatusCreated, "42.50")

	c, err := f.payments.CreatePayment(context.Background(), o.ID, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, c.Amount.Equal(o.TotalAmount))
	assert.Equal(t, int64(4250), c.AmountMinor)
}

func TestCreatePaymentRejectsNonCreatedOrder(t *testing.T) {
	f := newFixture(t)
	o := f.order(t, orders.StatusPaid, "100")

	_, err := f.payments.CreatePayment(context.Background(), o.ID, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.Empty(t, f.gateway.reqs)

	_, err = f.payments.CreatePayment(context.Background(), "missing", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreatePaymentGatewayFailureStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = errors.New("connection refused")
	o := f.order(t, orders.StatusCreated, "100")

	_, err := f.payments.CreatePayment(context.Background(), o.ID, decimal.NewFromInt(100))
	assert.ErrorIs(t, err, apperr.ErrGateway)

	_, found, err := f.db.Payments().FindByOrderID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestWebhookCapturedMarksPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, orders.StatusCreated, "100")
	c, err := f.payments.CreatePayment(ctx, o.ID, o.TotalAmount)
	require.NoError(t, err)

	handled, err := f.payments.HandleGatewayWebhook(ctx, captured(c.ExternalOrderID, "pay_1", "captured"))
	require.NoError(t, err)
	assert.True(t, handled)

	p := f.payment(t, o.ID)
	assert.Equal(t, orders.PaymentSuccess, p.Status)
	require.NotNil(t, p.ExternalPaymentID)
	assert.Equal(t, "pay_1", *p.ExternalPaymentID)
	assert.Equal(t, orders.StatusPaid, f.orderStatus(t, o.ID))

	msgs := f.events.Messages()
	require.Len(t, msgs, 1)
	var env orders.Envelope
	require.NoError(t, json.Unmarshal(msgs[0].Value, &env))
	assert.Equal(t, orders.EventPaymentSucceeded, env.EventType)
	assert.Equal(t, o.ID, env.CorrelationID)
}

func TestWebhookFailedMarksFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, orders.StatusCreated, "100")
	c, err := f.payments.CreatePayment(ctx, o.ID, o.TotalAmount)
	require.NoError(t, err)

	_, err = f.payments.HandleGatewayWebhook(ctx, captured(c.ExternalOrderID, "pay_1", "failed"))
	require.NoError(t, err)

	assert.Equal(t, orders.PaymentFailed, f.payment(t, o.ID).Status)
	assert.Equal(t, orders.StatusFailed, f.orderStatus(t, o.ID))
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	f := newFixture(t)
	handled, err := f.payments.HandleGatewayWebhook(context.Background(), payments.GatewayEvent{Event: "order.paid"})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestWebhookUnknownGatewayOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.payments.HandleGatewayWebhook(context.Background(), captured("order_nope", "pay_1", "captured"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerifyMarksPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, orders.StatusCreated, "100")
	c, err := f.payments.CreatePayment(ctx, o.ID, o.TotalAmount)
	require.NoError(t, err)

	p, err := f.payments.VerifyAndUpdatePayment(ctx, payments.VerifyRequest{
		OrderID:           o.ID,
		ExternalOrderID:   c.ExternalOrderID,
		ExternalPaymentID: "pay_9",
		Signature:         payments.NewSigner(secret).Sign(c.ExternalOrderID, "pay_9"),
	})
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentSuccess, p.Status)
	assert.Equal(t, orders.StatusPaid, f.orderStatus(t, o.ID))
}

func TestVerifyTamperedSignatureChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, orders.StatusCreated, "100")
	c, err := f.payments.CreatePayment(ctx, o.ID, o.TotalAmount)
	require.NoError(t, err)

	sig := payments.NewSigner(secret).Sign(c.ExternalOrderID, "pay_9")
	_, err = f.payments.VerifyAndUpdatePayment(ctx, payments.VerifyRequest{
		OrderID:           o.ID,
		ExternalOrderID:   c.ExternalOrderID,
		ExternalPaymentID: "pay_10",
		Signature:         sig,
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidSignature)

	assert.Equal(t, orders.PaymentPending, f.payment(t, o.ID).Status)
	assert.Equal(t, orders.StatusCreated, f.orderStatus(t, o.ID))
	assert.Empty(t, f.events.Messages())
}

func TestVerifyRejectsForeignOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, orders.StatusCreated, "100")
	c, err := f.payments.CreatePayment(ctx, o.ID, o.TotalAmount)
	require.NoError(t, err)

	_, err = f.payments.VerifyAndUpdatePayment(ctx, payments.VerifyRequest{
		OrderID:           "someone-else",
		ExternalOrderID:   c.ExternalOrderID,
		ExternalPaymentID: "pay_9",
		Signature:         payments.NewSigner(secret).Sign(c.ExternalOrderID, "pay_9"),
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.Equal(t, orders.PaymentPending, f.payment(t, o.ID).Status)
}

func TestConfirmationsApplyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, orders.StatusCreated, "100")
	c, err := f.payments.CreatePayment(ctx, o.ID, o.TotalAmount)
	require.NoError(t, err)

	_, err = f.payments.VerifyAndUpdatePayment(ctx, payments.VerifyRequest{
		OrderID:           o.ID,
		ExternalOrderID:   c.ExternalOrderID,
		ExternalPaymentID: "pay_1",
		Signature:         payments.NewSigner(secret).Sign(c.ExternalOrderID, "pay_1"),
	})
	require.NoError(t, err)

	// a late failure notice must not undo the verified payment
	_, err = f.payments.HandleGatewayWebhook(ctx, captured(c.ExternalOrderID, "pay_1", "failed"))
	require.NoError(t, err)
	_, err = f.payments.HandleGatewayWebhook(ctx, captured(c.ExternalOrderID, "pay_1", "captured"))
	require.NoError(t, err)

	assert.Equal(t, orders.PaymentSuccess, f.payment(t, o.ID).Status)
	assert.Equal(t, orders.StatusPaid, f.orderStatus(t, o.ID))
	assert.Len(t, f.events.Messages(), 1)
}

func TestResolveRollsBackWhenOrderUpdateFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, orders.StatusCreated, "100")
	c, err := f.payments.CreatePayment(ctx, o.ID, o.TotalAmount)
	require.NoError(t, err)

	broken := f.newPayments(failingOrders{Orders: f.orders})
	_, err = broken.HandleGatewayWebhook(ctx, captured(c.ExternalOrderID, "pay_1", "captured"))
	require.Error(t, err)

	assert.Equal(t, orders.PaymentPending, f.payment(t, o.ID).Status)
	assert.Equal(t, orders.StatusCreated, f.orderStatus(t, o.ID))
	assert.Empty(t, f.events.Messages())
}

func TestMockWebhook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, orders.StatusCreated, "100")
	_, err := f.payments.CreatePayment(ctx, o.ID, o.TotalAmount)
	require.NoError(t, err)

	p, err := f.payments.HandleMockWebhook(ctx, payments.MockEvent{OrderID: o.ID, Status: "SUCCESS", PaymentID: "mock_pay_ab12cd34"})
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentSuccess, p.Status)
	require.NotNil(t, p.ExternalPaymentID)
	assert.Equal(t, "mock_pay_ab12cd34", *p.ExternalPaymentID)
	assert.Equal(t, orders.StatusPaid, f.orderStatus(t, o.ID))

	_, err = f.payments.HandleMockWebhook(ctx, payments.MockEvent{OrderID: "missing", Status: "SUCCESS"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMockWebhookFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, orders.StatusCreated, "100")
	_, err := f.payments.CreatePayment(ctx, o.ID, o.TotalAmount)
	require.NoError(t, err)

	p, err := f.payments.HandleMockWebhook(ctx, payments.MockEvent{OrderID: o.ID, Status: "FAILED"})
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentFailed, p.Status)
	assert.Nil(t, p.ExternalPaymentID)
	assert.Equal(t, orders.StatusFailed, f.orderStatus(t, o.ID))
}

func TestWebhookCapturedStatusIsCaseSensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o := f.order(t, orders.StatusCreated, "100")
	c, err := f.payments.CreatePayment(ctx, o.ID, o.TotalAmount)
	require.NoError(t, err)

	handled, err := f.payments.HandleGatewayWebhook(ctx, captured(c.ExternalOrderID, "pay_1", "CAPTURED"))
	require.NoError(t, err)
	assert.True(t, handled)

	assert.Equal(t, orders.PaymentFailed, f.payment(t, o.ID).Status)
	assert.Equal(t, orders.StatusFailed, f.orderStatus(t, o.ID))
}

func TestWebhookWithoutGatewayOrderIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.payments.HandleGatewayWebhook(context.Background(), captured("", "pay_1", "captured"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
