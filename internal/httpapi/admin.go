package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/safar/storefront/internal/admin"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

func (h *handler) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Admin.Stats(r.Context())
	if err != nil {
		h.respondInternal(w, r, "Failed to load stats", err)
		return
	}
	h.respondJSON(w, http.StatusOK, stats)
}

func (h *handler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	orders, page, err := h.Admin.ListOrders(r.Context(), pageFromQuery(r))
	if err != nil {
		h.respondInternal(w, r, "Failed to list orders", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"orders":     orders,
		"pagination": page,
	})
}

func (h *handler) adminListProducts(w http.ResponseWriter, r *http.Request) {
	products, page, err := h.Admin.ListProducts(r.Context(), pageFromQuery(r))
	if err != nil {
		h.respondInternal(w, r, "Failed to list products", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"products":   products,
		"pagination": page,
	})
}

type updateStatusRequest struct {
	Status  models.OrderStatus `json:"status" validate:"required"`
	Version *int               `json:"version,omitempty"`
}

func (h *handler) adminUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || orderID <= 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	var req updateStatusRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.Admin.UpdateOrderStatus(r.Context(), orderID, req.Status, req.Version)
	if err != nil {
		switch {
		case errors.Is(err, admin.ErrInvalidStatus):
			h.respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, database.ErrOrderNotFound):
			h.respondError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, admin.ErrInvalidTransition):
			h.respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, database.ErrOptimisticLockFailed):
			h.respondError(w, http.StatusConflict, "Order was modified concurrently")
		default:
			h.respondInternal(w, r, "Failed to update order", err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{"order": updated})
}
