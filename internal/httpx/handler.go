package httpx

import (
	"context"

	"github.com/ariefcatur/go-shop-payments/internal/archive"
	"github.com/ariefcatur/go-shop-payments/internal/cart"
	"github.com/ariefcatur/go-shop-payments/internal/catalog"
	"github.com/ariefcatur/go-shop-payments/internal/orders"
	"github.com/ariefcatur/go-shop-payments/internal/payments"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Deduper is satisfied by *redisx.Deduper.
type Deduper interface {
	FirstSeen(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// Archiver is satisfied by *archive.Archive.
type Archiver interface {
	Save(ctx context.Context, r archive.Record) error
	Recent(ctx context.Context, source string, limit int64) ([]archive.Record, error)
}

type Deps struct {
	Catalog  *catalog.Service
	Cart     *cart.Service
	Orders   *orders.Service
	Payments *payments.Service

	// Optional.
	Dedup   Deduper
	Archive Archiver

	// WebhookSigner checks X-Razorpay-Signature when VerifyWebhooks is set.
	WebhookSigner  payments.Signer
	VerifyWebhooks bool

	// MockWebhooks mounts the unauthenticated simulator callback. Mock mode only.
	MockWebhooks bool

	KeyID string
	Log   *zap.Logger
}

type Handler struct {
	Deps
	validate *validator.Validate
}

func NewHandler(d Deps) *Handler {
	return &Handler{Deps: d, validate: newValidator()}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Post("/", h.createProduct)
			r.Get("/", h.listProducts)
			r.Get("/search", h.searchProducts)
			r.Get("/{id}", h.getProduct)
			r.Patch("/{id}/stock", h.updateStock)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Post("/add", h.addToCart)
			r.Get("/{userId}", h.getCart)
			r.Delete("/{userId}/clear", h.clearCart)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Get("/user/{userId}", h.userOrders)
			r.Get("/{orderId}", h.getOrder)
			r.Get("/{orderId}/status", h.orderStatus)
		})
		r.Route("/payments", func(r chi.Router) {
			r.Post("/create", h.createPayment)
			r.Post("/verify", h.verifyPayment)
		})
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/razorpay", h.razorpayWebhook)
			if h.MockWebhooks {
				r.Post("/mock", h.mockWebhook)
			}
			r.Get("/events", h.webhookEvents)
		})
		r.Get("/config/razorpay", h.razorpayConfig)
	})
}
