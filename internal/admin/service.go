// Package admin backs the admin console: dashboard figures, order and
// product listings, and order status changes.
package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"go.uber.org/zap"
)

const recentOrderLimit = 5

var (
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrInvalidTransition = errors.New("order status transition not allowed")
)

type EventPublisher interface {
	PublishOrderStatusChanged(ctx context.Context, order *models.Order) error
}

type Dashboard struct {
	store.DashboardCounts
	RecentOrders []models.Order `json:"recentOrders"`
}

type Service struct {
	db        *sql.DB
	publisher EventPublisher
	txOptions database.TxOptions
}

func NewService(db *sql.DB, publisher EventPublisher) *Service {
	return &Service{db: db, publisher: publisher, txOptions: database.DefaultTxOptions()}
}

func (s *Service) Stats(ctx context.Context) (*Dashboard, error) {
	counts, err := store.CountDashboard(ctx, s.db)
	if err != nil {
		return nil, err
	}

	recent, _, err := store.ListOrders(ctx, s.db, store.PageRequest{Page: 1, Limit: recentOrderLimit})
	if err != nil {
		return nil, err
	}

	return &Dashboard{DashboardCounts: *counts, RecentOrders: recent}, nil
}

func (s *Service) ListOrders(ctx context.Context, page store.PageRequest) ([]models.Order, store.Pagination, error) {
	return store.ListOrders(ctx, s.db, page)
}

// ListProducts lists the catalog in every status.
func (s *Service) ListProducts(ctx context.Context, page store.PageRequest) ([]models.Product, store.Pagination, error) {
	return store.ListProducts(ctx, s.db, store.ProductFilter{AllStatuses: true, PageRequest: page})
}

// UpdateOrderStatus moves an order to next. When expectedVersion is non-nil
// the order must still be at that version. Cancelling returns every line's
// quantity to stock in the same transaction.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID int64, next models.OrderStatus, expectedVersion *int) (*models.Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}

	var updated *models.Order

	err := database.WithRetry(ctx, s.db, s.txOptions, func(tx *sql.Tx) error {
		order, err := store.LockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}

		if expectedVersion != nil && *expectedVersion != order.Version {
			return database.ErrOptimisticLockFailed
		}

		if !order.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, order.Status, next)
		}

		if err := store.UpdateOrderStatus(ctx, tx, order.ID, next, order.Version); err != nil {
			return err
		}

		if next == models.OrderStatusCancelled {
			restock := make(map[int64]int)
			var ids []int64
			for _, item := range order.Items {
				if _, seen := restock[item.ProductID]; !seen {
					ids = append(ids, item.ProductID)
				}
				restock[item.ProductID] += item.Quantity
			}
			sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
			for _, id := range ids {
				if err := store.RestockProduct(ctx, tx, id, restock[id]); err != nil {
					return err
				}
			}
		}

		order.Status = next
		order.Version++
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Info("Order status changed",
		zap.Int64("order_id", updated.ID),
		zap.String("status", string(updated.Status)),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishOrderStatusChanged(ctx, updated); err != nil {
			logger.Get().Error("Publish order status event",
				zap.String("order_number", updated.OrderNumber),
				zap.Error(err),
			)
		}
	}

	return updated, nil
}
