package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// CreateProduct handles POST /api/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in productInput
	if err := decodeBody(w, r, &in); err != nil {
		h.fail(w, r, err, "Server error while creating product.")
		return
	}

	p := in.toProduct()
	if err := h.products.Create(r.Context(), p); err != nil {
		h.fail(w, r, err, "Server error while creating product.")
		return
	}
	writeData(w, http.StatusCreated, "", toProductJSON(p))
}

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.fail(w, r, err, "Server error while fetching products.")
		return
	}

	out := make([]productJSON, len(products))
	for i := range products {
		out[i] = toProductJSON(&products[i])
	}
	writeData(w, http.StatusOK, "", out)
}

// GetProduct handles GET /api/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err, "Server error while fetching product.")
		return
	}
	writeData(w, http.StatusOK, "", toProductJSON(p))
}

// UpdateProduct handles PATCH /api/products/{id}.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in productInput
	if err := decodeBody(w, r, &in); err != nil {
		h.fail(w, r, err, "Server error while updating product.")
		return
	}

	p, err := h.products.Update(r.Context(), chi.URLParam(r, "id"), in.toPatch())
	if err != nil {
		h.fail(w, r, err, "Server error while updating product.")
		return
	}
	writeData(w, http.StatusOK, "", toProductJSON(p))
}

// DeleteProduct handles DELETE /api/products/{id}.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err, "Server error while deleting product.")
		return
	}
	writeData(w, http.StatusOK, "Product deleted successfully.", nil)
}
