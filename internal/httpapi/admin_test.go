package httpapi

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/safar/storefront/internal/admin"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAdmin_RoleGuard(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/admin/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/admin/stats", ts.token(t, 7, models.RoleCustomer), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/admin/stats", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ts.admin.AssertNotCalled(t, "Stats", mock.Anything)
}

func TestAdmin_Stats(t *testing.T) {
	ts := newTestServer(t)

	ts.admin.On("Stats", mock.Anything).Return(&admin.Dashboard{
		DashboardCounts: store.DashboardCounts{Products: 3, Orders: 2, Users: 4, Revenue: decimal.NewFromInt(180000)},
		RecentOrders:    []models.Order{{ID: 2}},
	}, nil)

	rec := ts.do(t, http.MethodGet, "/admin/stats", ts.token(t, 1, models.RoleAdmin), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 3.0, body["products"])
	assert.Equal(t, "180000", body["revenue"])
	assert.Len(t, body["recentOrders"], 1)
}

func TestAdmin_ListOrdersPaging(t *testing.T) {
	ts := newTestServer(t)

	ts.admin.On("ListOrders", mock.Anything, store.PageRequest{Page: 3, Limit: 20}).Return(
		[]models.Order{{ID: 9, Customer: &models.Customer{Name: "Kim", Email: "kim@example.com"}}},
		store.Pagination{Page: 3, Limit: 20, Total: 41, Pages: 3},
		nil,
	)
	ts.admin.On("ListProducts", mock.Anything, store.PageRequest{}).Return(
		[]models.Product{{ID: 1, Status: models.ProductStatusDraft}},
		store.Pagination{Page: 1, Limit: 12, Total: 1, Pages: 1},
		nil,
	)

	tok := ts.token(t, 1, models.RoleAdmin)

	rec := ts.do(t, http.MethodGet, "/admin/orders?page=3&limit=20", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode(t, rec)["orders"].([]interface{})
	require.Len(t, orders, 1)
	assert.Equal(t, "Kim", orders[0].(map[string]interface{})["customer"].(map[string]interface{})["name"])

	rec = ts.do(t, http.MethodGet, "/admin/products", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["products"], 1)

	ts.admin.AssertExpectations(t)
}

func TestAdmin_UpdateOrderStatus(t *testing.T) {
	version := 2

	tests := []struct {
		name   string
		body   interface{}
		err    error
		status int
	}{
		{"Updated", map[string]interface{}{"status": "PROCESSING", "version": 2}, nil, http.StatusOK},
		{"UnknownStatus", map[string]interface{}{"status": "LOST"}, fmt.Errorf("%w: %q", admin.ErrInvalidStatus, "LOST"), http.StatusBadRequest},
		{"NotFound", map[string]interface{}{"status": "SHIPPED"}, database.ErrOrderNotFound, http.StatusNotFound},
		{"Transition", map[string]interface{}{"status": "PENDING"}, admin.ErrInvalidTransition, http.StatusConflict},
		{"Stale", map[string]interface{}{"status": "SHIPPED", "version": 2}, database.ErrOptimisticLockFailed, http.StatusConflict},
		{"Storage", map[string]interface{}{"status": "SHIPPED"}, fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)

			var updated *models.Order
			if tt.err == nil {
				updated = &models.Order{ID: 5, Status: models.OrderStatusProcessing, Version: version + 1}
			}
			ts.admin.On("UpdateOrderStatus", mock.Anything, int64(5), mock.Anything, mock.Anything).Return(updated, tt.err)

			rec := ts.do(t, http.MethodPatch, "/admin/orders/5/status", ts.token(t, 1, models.RoleAdmin), tt.body)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAdmin_UpdateOrderStatusPassesVersion(t *testing.T) {
	ts := newTestServer(t)

	ts.admin.On("UpdateOrderStatus", mock.Anything, int64(5), models.OrderStatusShipped,
		mock.MatchedBy(func(v *int) bool { return v != nil && *v == 4 }),
	).Return(&models.Order{ID: 5, Status: models.OrderStatusShipped}, nil).Once()
	ts.admin.On("UpdateOrderStatus", mock.Anything, int64(6), models.OrderStatusShipped,
		mock.MatchedBy(func(v *int) bool { return v == nil }),
	).Return(&models.Order{ID: 6, Status: models.OrderStatusShipped}, nil).Once()

	tok := ts.token(t, 1, models.RoleAdmin)

	rec := ts.do(t, http.MethodPatch, "/admin/orders/5/status", tok, map[string]interface{}{"status": "SHIPPED", "version": 4})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/admin/orders/6/status", tok, map[string]interface{}{"status": "SHIPPED"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/admin/orders/x/status", tok, map[string]interface{}{"status": "SHIPPED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/admin/orders/5/status", tok, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.admin.AssertExpectations(t)
}
