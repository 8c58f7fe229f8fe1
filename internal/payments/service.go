package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-shop-payments/internal/apperr"
	"github.com/ariefcatur/go-shop-payments/internal/logx"
	"github.com/ariefcatur/go-shop-payments/internal/orders"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	SourceWebhook = "webhook"
	SourceVerify  = "verify"
	SourceMock    = "mock"
)

type Store interface {
	Insert(ctx context.Context, p orders.Payment) error
	FindByOrderID(ctx context.Context, orderID string) (orders.Payment, bool, error)
	FindByExternalOrderID(ctx context.Context, externalOrderID string) (orders.Payment, error)
	Resolve(ctx context.Context, paymentID string, status orders.PaymentStatus, externalPaymentID *string, at time.Time) (bool, error)
}

// Orders is the part of orders.Service the payment workflow drives.
type Orders interface {
	GetOrder(ctx context.Context, orderID string) (orders.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status orders.Status) error
	ForgetStatus(ctx context.Context, orderID string)
}

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Deps struct {
	Tx          TxRunner
	Store       Store
	Orders      Orders
	Gateway     Gateway
	Signer      Signer
	Events      orders.Publisher
	KeyID       string
	Currency    string
	ServiceName string
	Log         *zap.Logger
}

type Service struct {
	Deps
	now func() time.Time
}

func NewService(d Deps) *Service {
	if d.Currency == "" {
		d.Currency = "INR"
	}
	return &Service{Deps: d, now: time.Now}
}

// Created is what the client needs to open the gateway checkout.
type Created struct {
	orders.Payment
	AmountMinor int64  `json:"amountMinor"`
	Currency    string `json:"currency"`
	KeyID       string `json:"keyId,omitempty"`
}

// CreatePayment opens a gateway order for a CREATED order. The gateway is
// called first; the PENDING payment is stored only once it answered.
// A non-positive amount charges the order total.
func (s *Service) CreatePayment(ctx context.Context, orderID string, amount decimal.Decimal) (Created, error) {
	log := logx.Ctx(ctx, s.Log)

	o, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return Created{}, err
	}
	if o.Status != orders.StatusCreated {
		return Created{}, apperr.InvalidState("order %s is %s, payment requires %s", orderID, o.Status, orders.StatusCreated)
	}
	if !amount.IsPositive() {
		amount = o.TotalAmount
	}

	paymentID := uuid.NewString()
	minor := ToMinorUnits(amount)
	gw, err := s.Gateway.CreateOrder(ctx, GatewayOrderRequest{
		PaymentID:   paymentID,
		Receipt:     orderID,
		Amount:      amount,
		AmountMinor: minor,
		Currency:    s.Currency,
	})
	if err != nil {
		log.Error("gateway order failed", zap.String("order_id", orderID), zap.Error(err))
		return Created{}, apperr.Gateway("create gateway order", err)
	}

	now := s.now().UTC()
	p := orders.Payment{
		ID:              paymentID,
		OrderID:         orderID,
		Amount:          amount,
		Status:          orders.PaymentPending,
		ExternalOrderID: gw.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Store.Insert(ctx, p); err != nil {
		return Created{}, fmt.Errorf("insert payment: %w", err)
	}

	log.Info("payment created",
		zap.String("order_id", orderID),
		zap.String("payment_id", p.ID),
		zap.String("external_order_id", gw.ID),
		zap.Int64("amount_minor", minor),
	)
	return Created{Payment: p, AmountMinor: minor, Currency: s.Currency, KeyID: s.KeyID}, nil
}

// HandleGatewayWebhook applies a payment.captured event. Other events are
// ignored and reported as (false, nil).
func (s *Service) HandleGatewayWebhook(ctx context.Context, ev GatewayEvent) (bool, error) {
	if ev.Event != EventPaymentCaptured {
		logx.Ctx(ctx, s.Log).Debug("webhook event ignored", zap.String("event", ev.Event))
		return false, nil
	}
	if ev.ExternalOrderID == "" {
		return false, apperr.NotFound("payment not found: webhook carries no gateway order id")
	}

	p, err := s.Store.FindByExternalOrderID(ctx, ev.ExternalOrderID)
	if err != nil {
		return false, err
	}

	status := orders.PaymentFailed
	if ev.Status == gatewayCaptured {
		status = orders.PaymentSuccess
	}
	var extID *string
	if ev.ExternalPaymentID != "" {
		extID = &ev.ExternalPaymentID
	}
	if _, err := s.resolve(ctx, p, status, extID, SourceWebhook); err != nil {
		return false, err
	}
	return true, nil
}

type VerifyRequest struct {
	OrderID           string `json:"orderId" validate:"required"`
	ExternalOrderID   string `json:"razorpay_order_id" validate:"required"`
	ExternalPaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature         string `json:"razorpay_signature" validate:"required"`
}

// VerifyAndUpdatePayment checks the checkout signature and marks the payment
// SUCCESS. A bad signature changes nothing.
func (s *Service) VerifyAndUpdatePayment(ctx context.Context, req VerifyRequest) (orders.Payment, error) {
	log := logx.Ctx(ctx, s.Log)

	if !s.Signer.Verify(req.ExternalOrderID, req.ExternalPaymentID, req.Signature) {
		log.Warn("payment signature rejected",
			zap.String("order_id", req.OrderID),
			zap.String("external_order_id", req.ExternalOrderID),
		)
		return orders.Payment{}, apperr.InvalidSignature("invalid payment signature")
	}

	p, err := s.Store.FindByExternalOrderID(ctx, req.ExternalOrderID)
	if err != nil {
		return orders.Payment{}, err
	}
	if req.OrderID != "" && p.OrderID != req.OrderID {
		return orders.Payment{}, apperr.InvalidState("gateway order %s does not belong to order %s", req.ExternalOrderID, req.OrderID)
	}
	extID := req.ExternalPaymentID
	return s.resolve(ctx, p, orders.PaymentSuccess, &extID, SourceVerify)
}

// HandleMockWebhook applies the simulator callback to the latest payment of
// the order.
func (s *Service) HandleMockWebhook(ctx context.Context, ev MockEvent) (orders.Payment, error) {
	p, found, err := s.Store.FindByOrderID(ctx, ev.OrderID)
	if err != nil {
		return orders.Payment{}, err
	}
	if !found {
		return orders.Payment{}, apperr.NotFound("payment not found for order %s", ev.OrderID)
	}

	status := orders.PaymentFailed
	if strings.EqualFold(ev.Status, string(orders.PaymentSuccess)) {
		status = orders.PaymentSuccess
	}
	var extID *string
	if ev.PaymentID != "" {
		extID = &ev.PaymentID
	}
	return s.resolve(ctx, p, status, extID, SourceMock)
}

// resolve moves p out of PENDING and the order out of CREATED together.
// Once the payment is terminal further confirmations are no-ops.
func (s *Service) resolve(ctx context.Context, p orders.Payment, status orders.PaymentStatus, extID *string, source string) (orders.Payment, error) {
	log := logx.Ctx(ctx, s.Log).With(
		zap.String("order_id", p.OrderID),
		zap.String("payment_id", p.ID),
		zap.String("source", source),
	)
	if p.Status.Terminal() {
		log.Info("payment already resolved", zap.String("status", string(p.Status)))
		return p, nil
	}

	now := s.now().UTC()
	changed := false
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.Store.Resolve(ctx, p.ID, status, extID, now)
		if err != nil {
			return fmt.Errorf("resolve payment: %w", err)
		}
		if !ok {
			return nil
		}
		changed = true

		o, err := s.Orders.GetOrder(ctx, p.OrderID)
		if err != nil {
			return err
		}
		target := orders.OrderStatusFor(status)
		if !orders.CanTransition(o.Status, target) {
			if o.Status != target {
				log.Warn("order status left unchanged",
					zap.String("order_status", string(o.Status)),
					zap.String("wanted", string(target)),
				)
			}
			return nil
		}
		return s.Orders.UpdateOrderStatus(ctx, p.OrderID, target)
	})
	if err != nil {
		s.Orders.ForgetStatus(ctx, p.OrderID)
		return orders.Payment{}, err
	}

	if !changed {
		// Lost a race with another confirmation; report what it stored.
		cur, err := s.Store.FindByExternalOrderID(ctx, p.ExternalOrderID)
		if err != nil {
			return orders.Payment{}, err
		}
		log.Info("payment already resolved", zap.String("status", string(cur.Status)))
		return cur, nil
	}

	p.Status = status
	if extID != nil {
		p.ExternalPaymentID = extID
	}
	p.UpdatedAt = now
	log.Info("payment resolved", zap.String("status", string(status)))

	eventType := orders.EventPaymentFailed
	if status == orders.PaymentSuccess {
		eventType = orders.EventPaymentSucceeded
	}
	payload := orders.PaymentResolvedPayload{
		OrderID:         p.OrderID,
		PaymentID:       p.ID,
		ExternalOrderID: p.ExternalOrderID,
		Amount:          p.Amount,
		Status:          status,
		Source:          source,
	}
	if p.ExternalPaymentID != nil {
		payload.ExternalPaymentID = *p.ExternalPaymentID
	}
	orders.Emit(s.Events, orders.TopicPaymentResolved, eventType, s.ServiceName, middleware.GetReqID(ctx), p.OrderID, payload)
	return p, nil
}
