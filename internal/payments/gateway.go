package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GatewayOrderRequest asks the gateway for an order reference.
type GatewayOrderRequest struct {
	PaymentID   string // local payment id
	Receipt     string // local order id
	Amount      decimal.Decimal
	AmountMinor int64
	Currency    string
}

type GatewayOrder struct {
	ID     string
	Status string
}

type Gateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (GatewayOrder, error)
}

// ToMinorUnits converts to paise/cents, truncating any fraction below the
// minor unit.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// RazorpayClient calls the Orders API with basic auth.
type RazorpayClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

func NewRazorpayClient(baseURL, keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: newHTTPClient(),
	}
}

type razorpayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type razorpayOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, req GatewayOrderRequest) (GatewayOrder, error) {
	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   req.AmountMinor,
		Currency: req.Currency,
		Receipt:  req.Receipt,
	})
	if err != nil {
		return GatewayOrder{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return GatewayOrder{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("razorpay order request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return GatewayOrder{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e razorpayErrorResponse
		if json.Unmarshal(raw, &e) == nil && e.Error.Description != "" {
			return GatewayOrder{}, fmt.Errorf("razorpay returned %d: %s", resp.StatusCode, e.Error.Description)
		}
		return GatewayOrder{}, fmt.Errorf("razorpay returned %d", resp.StatusCode)
	}

	var out razorpayOrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return GatewayOrder{}, fmt.Errorf("decode razorpay order: %w", err)
	}
	if out.ID == "" {
		return GatewayOrder{}, fmt.Errorf("razorpay order response has no id")
	}
	return GatewayOrder{ID: out.ID, Status: out.Status}, nil
}

// MockClient drives cmd/mockgateway. The simulator has no order concept, so
// the reference is derived from the local payment id.
type MockClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewMockClient(baseURL string) *MockClient {
	return &MockClient{baseURL: strings.TrimRight(baseURL, "/"), httpClient: newHTTPClient()}
}

type mockCreateRequest struct {
	OrderID   string          `json:"orderId"`
	Amount    decimal.Decimal `json:"amount"`
	PaymentID string          `json:"paymentId"`
}

func (c *MockClient) CreateOrder(ctx context.Context, req GatewayOrderRequest) (GatewayOrder, error) {
	body, err := json.Marshal(mockCreateRequest{OrderID: req.Receipt, Amount: req.Amount, PaymentID: req.PaymentID})
	if err != nil {
		return GatewayOrder{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments/create", bytes.NewReader(body))
	if err != nil {
		return GatewayOrder{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return GatewayOrder{}, fmt.Errorf("mock gateway request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return GatewayOrder{}, fmt.Errorf("mock gateway returned %d", resp.StatusCode)
	}
	return GatewayOrder{ID: "mock_order_" + req.PaymentID, Status: "created"}, nil
}
