package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnitsTruncates(t *testing.T) {
	assert.Equal(t, int64(10000), ToMinorUnits(decimal.NewFromInt(100)))
	assert.Equal(t, int64(1999), ToMinorUnits(decimal.RequireFromString("19.999")))
	assert.Equal(t, int64(5), ToMinorUnits(decimal.RequireFromString("0.05")))
}

func TestRazorpayCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		var body razorpayOrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(10000), body.Amount)
		assert.Equal(t, "INR", body.Currency)
		assert.Equal(t, "o1", body.Receipt)

		_, _ = w.Write([]byte(`{"id":"order_Abc","status":"created","amount":10000}`))
	}))
	defer srv.Close()

	c := NewRazorpayClient(srv.URL+"/", "key", "secret")
	got, err := c.CreateOrder(context.Background(), GatewayOrderRequest{
		Receipt: "o1", Amount: decimal.NewFromInt(100), AmountMinor: 10000, Currency: "INR",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_Abc", got.ID)
}

func TestRazorpayCreateOrderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"Authentication failed"}}`))
	}))
	defer srv.Close()

	_, err := NewRazorpayClient(srv.URL, "key", "bad").CreateOrder(context.Background(), GatewayOrderRequest{AmountMinor: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Authentication failed")
}

func TestMockClientCreateOrder(t *testing.T) {
	var got mockCreateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/create", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":"accepted"}`))
	}))
	defer srv.Close()

	out, err := NewMockClient(srv.URL).CreateOrder(context.Background(), GatewayOrderRequest{
		PaymentID: "p1", Receipt: "o1", Amount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, "mock_order_p1", out.ID)
	assert.Equal(t, "o1", got.OrderID)
	assert.Equal(t, "p1", got.PaymentID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(100)))
}

func TestMockClientUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewMockClient(srv.URL).CreateOrder(context.Background(), GatewayOrderRequest{PaymentID: "p1"})
	assert.Error(t, err)
}
