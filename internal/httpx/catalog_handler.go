package httpx

import (
	"net/http"

	"github.com/ariefcatur/go-shop-payments/internal/catalog"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type createProductReq struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

type updateStockReq struct {
	Delta *int `json:"delta" validate:"required"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductReq
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	p, err := h.Catalog.CreateProduct(r.Context(), catalog.NewProduct{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// listProducts also answers ?q= so clients can search from the list view.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	if q := r.URL.Query().Get("q"); q != "" {
		h.searchProducts(w, r)
		return
	}
	ps, err := h.Catalog.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) searchProducts(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Catalog.SearchProducts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) updateStock(w http.ResponseWriter, r *http.Request) {
	var req updateStockReq
	if err := decode(r, h.validate, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	id := chi.URLParam(r, "id")
	stock, err := h.Catalog.UpdateStock(r.Context(), id, *req.Delta)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"productId": id, "stock": stock})
}
