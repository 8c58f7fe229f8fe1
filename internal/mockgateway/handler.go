package mockgateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-shop-payments/internal/worker"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type createRequest struct {
	OrderID   string          `json:"orderId" validate:"required"`
	Amount    decimal.Decimal `json:"amount"`
	PaymentID string          `json:"paymentId"`
}

type createResponse struct {
	Message   string          `json:"message"`
	OrderID   string          `json:"orderId"`
	Amount    decimal.Decimal `json:"amount"`
	PaymentID string          `json:"paymentId"`
}

type Handler struct {
	sim      *Simulator
	validate *validator.Validate
	log      *zap.Logger
}

func NewHandler(sim *Simulator, log *zap.Logger) *Handler {
	return &Handler{sim: sim, validate: validator.New(), log: log}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Route("/payments", func(r chi.Router) {
		r.Post("/create", h.create)
		r.Get("/health", h.health)
	})
	return r
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "orderId is required"})
		return
	}

	cb, err := h.sim.Schedule(req.OrderID)
	switch {
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrClosed):
		h.log.Warn("callback not scheduled", zap.String("order_id", req.OrderID), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.log.Info("payment accepted",
		zap.String("order_id", req.OrderID),
		zap.String("payment_id", req.PaymentID),
		zap.String("callback_payment_id", cb.PaymentID),
	)
	writeJSON(w, http.StatusOK, createResponse{
		Message:   "Payment initiated, webhook will be sent shortly",
		OrderID:   req.OrderID,
		Amount:    req.Amount,
		PaymentID: req.PaymentID,
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP", "service": "mock-payment-gateway"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
