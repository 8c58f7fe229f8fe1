package orders

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusCreated, StatusPaid))
	assert.True(t, CanTransition(StatusCreated, StatusFailed))
	assert.False(t, CanTransition(StatusPaid, StatusFailed))
	assert.False(t, CanTransition(StatusFailed, StatusPaid))
	assert.False(t, CanTransition(StatusPaid, StatusCreated))
	assert.False(t, CanTransition(Status("SHIPPED"), StatusPaid))
}

func TestPaymentStatus(t *testing.T) {
	assert.False(t, PaymentPending.Terminal())
	assert.True(t, PaymentSuccess.Terminal())
	assert.True(t, PaymentFailed.Terminal())
	assert.Equal(t, StatusPaid, OrderStatusFor(PaymentSuccess))
	assert.Equal(t, StatusFailed, OrderStatusFor(PaymentFailed))
}

func TestOrderItemSubtotal(t *testing.T) {
	it := OrderItem{Quantity: 3, Price: decimal.RequireFromString("19.99")}
	assert.Equal(t, "59.97", it.Subtotal().StringFixed(2))
}
