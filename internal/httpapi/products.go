package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/store"
)

func (h *handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := store.ProductFilter{
		Category:    q.Get("category"),
		Search:      q.Get("search"),
		Sort:        q.Get("sort"),
		PageRequest: pageFromQuery(r),
	}

	products, page, err := h.Catalog.ListProducts(r.Context(), filter)
	if err != nil {
		h.respondInternal(w, r, "Failed to list products", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"products":   products,
		"pagination": page,
	})
}

func (h *handler) getProduct(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Catalog.GetProductBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			h.respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.respondInternal(w, r, "Failed to get product", err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"product": detail})
}
