package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/safar/storefront/internal/admin"
	"github.com/safar/storefront/internal/auth"
	"github.com/safar/storefront/internal/cache"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/order"
	"github.com/safar/storefront/internal/store"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockOrders struct{ mock.Mock }

func (m *mockOrders) PlaceOrder(ctx context.Context, userID int64, req order.PlaceOrderRequest) (*models.Order, error) {
	args := m.Called(ctx, userID, req)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrders) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	args := m.Called(ctx, userID)
	o, _ := args.Get(0).([]models.Order)
	return o, args.Error(1)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, store.Pagination, error) {
	args := m.Called(ctx, filter)
	p, _ := args.Get(0).([]models.Product)
	return p, args.Get(1).(store.Pagination), args.Error(2)
}

func (m *mockCatalog) GetProductBySlug(ctx context.Context, slug string) (*models.ProductDetail, error) {
	args := m.Called(ctx, slug)
	d, _ := args.Get(0).(*models.ProductDetail)
	return d, args.Error(1)
}

func (m *mockCatalog) GetPurchasableProduct(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

type mockAdmin struct{ mock.Mock }

func (m *mockAdmin) Stats(ctx context.Context) (*admin.Dashboard, error) {
	args := m.Called(ctx)
	d, _ := args.Get(0).(*admin.Dashboard)
	return d, args.Error(1)
}

func (m *mockAdmin) ListOrders(ctx context.Context, page store.PageRequest) ([]models.Order, store.Pagination, error) {
	args := m.Called(ctx, page)
	o, _ := args.Get(0).([]models.Order)
	return o, args.Get(1).(store.Pagination), args.Error(2)
}

func (m *mockAdmin) ListProducts(ctx context.Context, page store.PageRequest) ([]models.Product, store.Pagination, error) {
	args := m.Called(ctx, page)
	p, _ := args.Get(0).([]models.Product)
	return p, args.Get(1).(store.Pagination), args.Error(2)
}

func (m *mockAdmin) UpdateOrderStatus(ctx context.Context, orderID int64, next models.OrderStatus, expectedVersion *int) (*models.Order, error) {
	args := m.Called(ctx, orderID, next, expectedVersion)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

type testServer struct {
	orders  *mockOrders
	catalog *mockCatalog
	admin   *mockAdmin
	carts   *cache.RedisAdapter
	redis   *miniredis.Miniredis
	auth    *auth.Manager
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	carts, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { carts.Close() })

	ts := &testServer{
		orders:  &mockOrders{},
		catalog: &mockCatalog{},
		admin:   &mockAdmin{},
		carts:   carts,
		redis:   mr,
		auth:    auth.NewManager("test-secret", time.Hour),
	}

	ts.handler = NewRouter(Deps{
		Orders:  ts.orders,
		Catalog: ts.catalog,
		Admin:   ts.admin,
		Carts:   carts,
		Auth:    ts.auth,
		Checks: map[string]HealthCheck{
			"redis": carts.Ping,
		},
	})

	return ts
}

func (ts *testServer) token(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok, err := ts.auth.Issue(userID, role)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
