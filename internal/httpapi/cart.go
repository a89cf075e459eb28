package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cart"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/order"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type cartView struct {
	Items       []cart.Item     `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	TotalItems  int             `json:"totalItems"`
}

func viewOf(c *cart.Cart) cartView {
	return cartView{Items: c.Items(), TotalAmount: c.TotalAmount(), TotalItems: c.TotalItems()}
}

// loadCart opens the caller's cart slot. It writes the error response itself
// and returns nil on failure.
func (h *handler) loadCart(w http.ResponseWriter, r *http.Request) *cart.Cart {
	id, _ := auth.FromContext(r.Context())

	c, err := cart.Load(r.Context(), h.Carts, cart.SlotKey(id.UserID))
	if err != nil {
		h.respondInternal(w, r, "Failed to load cart", err)
		return nil
	}
	return c
}

func (h *handler) getCart(w http.ResponseWriter, r *http.Request) {
	c := h.loadCart(w, r)
	if c == nil {
		return
	}
	h.respondJSON(w, http.StatusOK, viewOf(c))
}

type addCartItemRequest struct {
	ProductID   int64  `json:"productId" validate:"required,gt=0"`
	VariantID   string `json:"variantId,omitempty"`
	VariantName string `json:"variantName,omitempty"`
	Quantity    int    `json:"quantity"`
}

// addCartItem snapshots the product's current name, price and first image
// into the cart. Prices are never taken from the client.
func (h *handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	product, err := h.Catalog.GetPurchasableProduct(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			h.respondError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.respondInternal(w, r, "Failed to get product", err)
		return
	}

	c := h.loadCart(w, r)
	if c == nil {
		return
	}

	item := cart.Item{
		ProductID:   product.ID,
		VariantID:   req.VariantID,
		VariantName: req.VariantName,
		Name:        product.Name,
		Price:       product.Price,
		Image:       product.Thumbnail(),
	}
	if err := c.AddItem(r.Context(), item, req.Quantity); err != nil {
		h.respondInternal(w, r, "Failed to update cart", err)
		return
	}

	h.respondJSON(w, http.StatusOK, viewOf(c))
}

type updateCartItemRequest struct {
	Quantity  int    `json:"quantity"`
	VariantID string `json:"variantId,omitempty"`
}

func (h *handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productIDParam(w, r)
	if !ok {
		return
	}

	var req updateCartItemRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	c := h.loadCart(w, r)
	if c == nil {
		return
	}

	if err := c.UpdateQuantity(r.Context(), productID, req.Quantity, req.VariantID); err != nil {
		h.respondInternal(w, r, "Failed to update cart", err)
		return
	}

	h.respondJSON(w, http.StatusOK, viewOf(c))
}

func (h *handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := h.productIDParam(w, r)
	if !ok {
		return
	}

	c := h.loadCart(w, r)
	if c == nil {
		return
	}

	if err := c.RemoveItem(r.Context(), productID, r.URL.Query().Get("variantId")); err != nil {
		h.respondInternal(w, r, "Failed to update cart", err)
		return
	}

	h.respondJSON(w, http.StatusOK, viewOf(c))
}

func (h *handler) clearCart(w http.ResponseWriter, r *http.Request) {
	c := h.loadCart(w, r)
	if c == nil {
		return
	}

	if err := c.Clear(r.Context()); err != nil {
		h.respondInternal(w, r, "Failed to clear cart", err)
		return
	}

	h.respondJSON(w, http.StatusOK, viewOf(c))
}

type checkoutRequest struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod" validate:"required"`
	CouponCode      string                 `json:"couponCode,omitempty"`
}

// checkout turns the cart into an order. The cart is cleared only after the
// order has been committed.
func (h *handler) checkout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	var req checkoutRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	c := h.loadCart(w, r)
	if c == nil {
		return
	}

	orderReq := order.PlaceOrderRequest{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		CouponCode:      req.CouponCode,
	}
	for _, item := range c.Items() {
		orderReq.Items = append(orderReq.Items, order.ItemRequest{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		})
	}

	placed, err := h.Orders.PlaceOrder(r.Context(), id.UserID, orderReq)
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}

	if err := c.Clear(r.Context()); err != nil {
		h.Logger.Warn("Clear cart after checkout",
			zap.String("order_number", placed.OrderNumber),
			zap.Error(err),
		)
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Order created",
		"order":   placed,
	})
}

func (h *handler) productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid product ID")
		return 0, false
	}
	return id, true
}
