package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/ariefcatur/go-shop-payments/internal/payments"
	"github.com/shopspring/decimal"
)

type createPaymentReq struct {
	OrderID string          `json:"orderId" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentReq
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 12*time.Second)
	defer cancel()

	c, err := h.Payments.CreatePayment(ctx, req.OrderID, req.Amount)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req payments.VerifyRequest
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Payments.VerifyAndUpdatePayment(r.Context(), req)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) razorpayConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"keyId": h.KeyID})
}
