package httpapi

import (
	"net/http"
	"testing"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func coat() *models.Product {
	return &models.Product{
		ID:     4,
		Name:   "Wool Coat",
		Price:  decimal.NewFromInt(89000),
		Status: models.ProductStatusActive,
		Images: []models.ProductImage{{URL: "https://cdn.example.com/coat.jpg"}},
	}
}

func cartItems(t *testing.T, body map[string]interface{}) []map[string]interface{} {
	t.Helper()
	raw, ok := body["items"].([]interface{})
	require.True(t, ok, "items should be an array")
	items := make([]map[string]interface{}, len(raw))
	for i, v := range raw {
		items[i] = v.(map[string]interface{})
	}
	return items
}

func TestCart_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/cart/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCart_AddUsesCatalogPrice(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, 7, models.RoleCustomer)

	ts.catalog.On("GetPurchasableProduct", mock.Anything, int64(4)).Return(coat(), nil)

	rec := ts.do(t, http.MethodPost, "/cart/items", tok, map[string]interface{}{
		"productId": 4, "variantId": "M", "variantName": "Medium", "quantity": 2, "price": "1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	items := cartItems(t, body)
	require.Len(t, items, 1)
	assert.Equal(t, "Wool Coat", items[0]["name"])
	assert.Equal(t, "89000", items[0]["price"])
	assert.Equal(t, "https://cdn.example.com/coat.jpg", items[0]["image"])
	assert.Equal(t, "178000", body["totalAmount"])
	assert.Equal(t, 2.0, body["totalItems"])

	// Adding the same identity again merges quantities.
	rec = ts.do(t, http.MethodPost, "/cart/items", tok, map[string]interface{}{
		"productId": 4, "variantId": "M", "quantity": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	items = cartItems(t, decode(t, rec))
	require.Len(t, items, 1)
	assert.Equal(t, 3.0, items[0]["quantity"])

	// The cart survives across requests.
	rec = ts.do(t, http.MethodGet, "/cart/", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, cartItems(t, decode(t, rec)), 1)

	// Another user sees their own empty cart.
	rec = ts.do(t, http.MethodGet, "/cart/", ts.token(t, 8, models.RoleCustomer), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, cartItems(t, decode(t, rec)))
}

func TestCart_AddUnknownProduct(t *testing.T) {
	ts := newTestServer(t)
	ts.catalog.On("GetPurchasableProduct", mock.Anything, int64(99)).Return(nil, database.ErrProductNotFound)

	rec := ts.do(t, http.MethodPost, "/cart/items", ts.token(t, 7, models.RoleCustomer),
		map[string]interface{}{"productId": 99, "quantity": 1})

	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/cart/items", ts.token(t, 7, models.RoleCustomer),
		map[string]interface{}{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCart_UpdateRemoveClear(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, 7, models.RoleCustomer)

	scarf := &models.Product{ID: 5, Name: "Scarf", Price: decimal.NewFromInt(15000)}
	ts.catalog.On("GetPurchasableProduct", mock.Anything, int64(4)).Return(coat(), nil)
	ts.catalog.On("GetPurchasableProduct", mock.Anything, int64(5)).Return(scarf, nil)

	ts.do(t, http.MethodPost, "/cart/items", tok, map[string]interface{}{"productId": 4, "quantity": 1})
	ts.do(t, http.MethodPost, "/cart/items", tok, map[string]interface{}{"productId": 5, "quantity": 1})

	rec := ts.do(t, http.MethodPatch, "/cart/items/5", tok, map[string]interface{}{"quantity": 4})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "149000", body["totalAmount"])
	assert.Equal(t, 5.0, body["totalItems"])

	rec = ts.do(t, http.MethodPatch, "/cart/items/5", tok, map[string]interface{}{"quantity": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	items := cartItems(t, decode(t, rec))
	require.Len(t, items, 1)
	assert.Equal(t, 4.0, items[0]["productId"])

	rec = ts.do(t, http.MethodDelete, "/cart/items/4", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, cartItems(t, decode(t, rec)))

	ts.do(t, http.MethodPost, "/cart/items", tok, map[string]interface{}{"productId": 4, "quantity": 1})
	rec = ts.do(t, http.MethodDelete, "/cart/", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, cartItems(t, decode(t, rec)))

	rec = ts.do(t, http.MethodPatch, "/cart/items/abc", tok, map[string]interface{}{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

var checkoutBody = map[string]interface{}{
	"shippingAddress": map[string]string{
		"recipientName": "Kim", "phone": "010", "postalCode": "04524", "address1": "1 Main St",
	},
	"paymentMethod": "card",
}

func TestCheckout_ClearsCartOnSuccess(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, 7, models.RoleCustomer)

	ts.catalog.On("GetPurchasableProduct", mock.Anything, int64(4)).Return(coat(), nil)
	ts.do(t, http.MethodPost, "/cart/items", tok, map[string]interface{}{"productId": 4, "variantId": "M", "quantity": 2})

	ts.orders.On("PlaceOrder", mock.Anything, int64(7), mock.MatchedBy(func(req order.PlaceOrderRequest) bool {
		return len(req.Items) == 1 &&
			req.Items[0] == order.ItemRequest{ProductID: 4, VariantID: "M", Quantity: 2} &&
			req.PaymentMethod == "card"
	})).Return(&models.Order{ID: 1, OrderNumber: "ORD-00000000AB"}, nil)

	rec := ts.do(t, http.MethodPost, "/cart/checkout", tok, checkoutBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	ts.orders.AssertExpectations(t)

	rec = ts.do(t, http.MethodGet, "/cart/", tok, nil)
	assert.Empty(t, cartItems(t, decode(t, rec)))
}

func TestCheckout_KeepsCartOnFailure(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, 7, models.RoleCustomer)

	ts.catalog.On("GetPurchasableProduct", mock.Anything, int64(4)).Return(coat(), nil)
	ts.do(t, http.MethodPost, "/cart/items", tok, map[string]interface{}{"productId": 4, "quantity": 9})

	ts.orders.On("PlaceOrder", mock.Anything, int64(7), mock.Anything).Return(nil,
		&database.InsufficientStockError{ProductID: 4, ProductName: "Wool Coat", Requested: 9, Available: 3})

	rec := ts.do(t, http.MethodPost, "/cart/checkout", tok, checkoutBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "insufficient stock for Wool Coat", decode(t, rec)["error"])

	rec = ts.do(t, http.MethodGet, "/cart/", tok, nil)
	assert.Len(t, cartItems(t, decode(t, rec)), 1)
}

func TestCheckout_EmptyCart(t *testing.T) {
	ts := newTestServer(t)
	ts.orders.On("PlaceOrder", mock.Anything, int64(7), mock.MatchedBy(func(req order.PlaceOrderRequest) bool {
		return len(req.Items) == 0
	})).Return(nil, order.ErrEmptyOrder)

	rec := ts.do(t, http.MethodPost, "/cart/checkout", ts.token(t, 7, models.RoleCustomer), checkoutBody)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, order.ErrEmptyOrder.Error(), decode(t, rec)["error"])
}

func TestCart_StorageDown(t *testing.T) {
	ts := newTestServer(t)
	ts.redis.Close()

	rec := ts.do(t, http.MethodGet, "/cart/", ts.token(t, 7, models.RoleCustomer), nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to load cart", decode(t, rec)["error"])
}
