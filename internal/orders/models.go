package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Items       []OrderItem     `json:"items"`
}

// OrderItem is a snapshot of the product at checkout; later price or name
// changes never reach it.
type OrderItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

func (it OrderItem) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Payment is the local record of a gateway payment. One per order, enforced
// by lookup.
type Payment struct {
	ID                string          `json:"id"`
	OrderID           string          `json:"orderId"`
	Amount            decimal.Decimal `json:"amount"`
	Status            PaymentStatus   `json:"status"`
	ExternalPaymentID *string         `json:"paymentId"`
	ExternalOrderID   string          `json:"razorpayOrderId"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Detail is an order with its payment, if one was created.
type Detail struct {
	Order
	Payment *Payment `json:"payment"`
}
