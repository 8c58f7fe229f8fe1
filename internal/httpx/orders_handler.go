package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type createOrderReq struct {
	UserID string `json:"userId" validate:"required"`
}

type orderStatusResp struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.CreateOrder(ctx, req.UserID)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	d, err := h.Orders.GetOrderByID(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// orderStatus is served from the status cache when possible.
func (h *Handler) orderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	id := chi.URLParam(r, "orderId")
	st, err := h.Orders.GetOrderStatus(ctx, id)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, orderStatusResp{OrderID: id, Status: string(st)})
}

func (h *Handler) userOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.GetUserOrders(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
