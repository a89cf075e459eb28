package store

import (
	"context"
	"fmt"

	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// DashboardCounts are the headline numbers of the admin dashboard.
type DashboardCounts struct {
	Products int64           `json:"products"`
	Orders   int64           `json:"orders"`
	Users    int64           `json:"users"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// CountDashboard returns table counts and revenue, which only counts
// COMPLETED orders.
func CountDashboard(ctx context.Context, db Querier) (*DashboardCounts, error) {
	counts := &DashboardCounts{}

	err := db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM users),
			(SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE status = $1)`,
		models.OrderStatusCompleted).Scan(
		&counts.Products,
		&counts.Orders,
		&counts.Users,
		&counts.Revenue,
	)
	if err != nil {
		return nil, fmt.Errorf("count dashboard: %w", err)
	}

	return counts, nil
}
