package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type addToCartReq struct {
	UserID    string `json:"userId" validate:"required"`
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	var req addToCartReq
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	it, err := h.Cart.AddToCart(r.Context(), req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	items, err := h.Cart.GetCartItems(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.Cart.ClearCart(r.Context(), chi.URLParam(r, "userId")); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
