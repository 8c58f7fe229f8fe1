package mockgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-payments/internal/config"
	"github.com/ariefcatur/go-shop-payments/internal/worker"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Callback is posted to the configured webhook URL.
type Callback struct {
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	PaymentID string `json:"paymentId"`
}

// Simulator answers payment requests at once and confirms them later with a
// webhook call. Failed callbacks are logged and dropped.
type Simulator struct {
	webhookURL string
	delay      time.Duration
	status     string
	pool       *worker.Pool
	httpClient *http.Client
	log        *zap.Logger
}

func NewSimulator(cfg config.MockConfig, log *zap.Logger) *Simulator {
	status := cfg.Status
	if status != "FAILED" {
		status = "SUCCESS"
	}
	return &Simulator{
		webhookURL: cfg.WebhookURL,
		delay:      cfg.Delay,
		status:     status,
		pool:       worker.NewPool(cfg.Workers, cfg.QueueSize, log),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Schedule queues the confirmation for orderID. It fires the configured delay
// after the request, however long the task waited for a free worker.
func (s *Simulator) Schedule(orderID string) (Callback, error) {
	cb := Callback{
		OrderID:   orderID,
		Status:    s.status,
		PaymentID: "mock_pay_" + uuid.NewString()[:8],
	}
	due := time.Now().Add(s.delay)
	err := s.pool.Submit(func(ctx context.Context) error {
		t := time.NewTimer(time.Until(due))
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
		return s.send(ctx, cb)
	})
	if err != nil {
		return Callback{}, err
	}
	return cb, nil
}

func (s *Simulator) send(ctx context.Context, cb Callback) error {
	body, err := json.Marshal(cb)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook callback for order %s: %w", cb.OrderID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook callback for order %s: status %d", cb.OrderID, resp.StatusCode)
	}
	s.log.Info("webhook sent", zap.String("order_id", cb.OrderID), zap.String("payment_id", cb.PaymentID))
	return nil
}

// Shutdown waits for pending callbacks until ctx ends.
func (s *Simulator) Shutdown(ctx context.Context) error {
	return s.pool.Shutdown(ctx)
}
