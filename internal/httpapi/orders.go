package httpapi

import (
	"errors"
	"net/http"

	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/order"
	"go.uber.org/zap"
)

func (h *handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	var req order.PlaceOrderRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	placed, err := h.Orders.PlaceOrder(r.Context(), id.UserID, req)
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Order created",
		"order":   placed,
	})
}

func (h *handler) listOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	orders, err := h.Orders.ListOrders(r.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, order.ErrUnauthenticated) {
			h.respondError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		h.respondInternal(w, r, "Failed to list orders", err)
		return
	}

	if orders == nil {
		orders = []models.Order{}
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

// respondOrderError maps placement failures: validation rejections are 400
// with a message naming the problem, anything else is a generic 500.
func (h *handler) respondOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *database.InsufficientStockError

	switch {
	case errors.Is(err, order.ErrUnauthenticated):
		h.respondError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, database.ErrProductNotFound):
		h.Logger.Info("Order rejected", zap.Error(err))
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stockErr):
		h.Logger.Info("Order rejected",
			zap.Int64("product_id", stockErr.ProductID),
			zap.Int("requested", stockErr.Requested),
			zap.Int("available", stockErr.Available),
		)
		h.respondError(w, http.StatusBadRequest, stockErr.Error())
	case errors.Is(err, database.ErrLockTimeout):
		h.Logger.Warn("Order placement timed out waiting for stock locks", zap.Error(err))
		h.respondError(w, http.StatusServiceUnavailable, "Order could not be placed, please retry")
	default:
		h.respondInternal(w, r, "Failed to create order", err)
	}
}
