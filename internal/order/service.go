// Package order assembles orders: it validates a request against the catalog,
// prices it, and commits the order, the stock decrements and the coupon
// redemption as one transaction.
package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/pricing"
	"github.com/safar/storefront/internal/store"
	"go.uber.org/zap"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrEmptyOrder      = errors.New("order has no items")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
)

// MaxQuantity is the largest quantity a single order line may carry; it is
// the range of the order_items.quantity column.
const MaxQuantity = math.MaxInt32

// EventPublisher is notified after an order has been committed.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order *models.Order) error
}

type ItemRequest struct {
	ProductID int64  `json:"productId" validate:"required,gt=0"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity"`
}

type PlaceOrderRequest struct {
	Items           []ItemRequest          `json:"items" validate:"dive"`
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod" validate:"required"`
	CouponCode      string                 `json:"couponCode,omitempty"`
}

type Service struct {
	db        *sql.DB
	policy    pricing.Policy
	publisher EventPublisher
	txOptions database.TxOptions
	now       func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now for coupon validity checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *sql.DB, policy pricing.Policy, publisher EventPublisher, opts ...Option) *Service {
	s := &Service{
		db:        db,
		policy:    policy,
		publisher: publisher,
		txOptions: database.DefaultTxOptions(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder validates req, prices it with current catalog prices and commits
// the order for userID. Validation failures are returned before anything is
// written. A coupon that does not apply is ignored rather than rejected.
func (s *Service) PlaceOrder(ctx context.Context, userID int64, req PlaceOrderRequest) (*models.Order, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}

	requested := make(map[int64]int, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 || item.Quantity > MaxQuantity {
			return nil, ErrInvalidQuantity
		}
		requested[item.ProductID] += item.Quantity
	}

	ids := make([]int64, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var placed *models.Order

	err := database.WithRetry(ctx, s.db, s.txOptions, func(tx *sql.Tx) error {
		products, err := store.LockActiveProducts(ctx, tx, ids)
		if err != nil {
			return err
		}
		if len(products) != len(ids) {
			return database.ErrProductNotFound
		}

		byID := make(map[int64]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
			if p.StockQuantity < requested[p.ID] {
				return insufficient(p, requested[p.ID])
			}
		}

		order := &models.Order{
			UserID:          userID,
			OrderNumber:     newOrderNumber(),
			Status:          models.OrderStatusPending,
			ShippingAddress: req.ShippingAddress,
			PaymentMethod:   req.PaymentMethod,
			Items:           make([]models.OrderItem, 0, len(req.Items)),
		}

		lines := make([]pricing.Line, 0, len(req.Items))
		for _, item := range req.Items {
			p := byID[item.ProductID]
			line := pricing.Line{UnitPrice: p.Price, Quantity: item.Quantity}
			lines = append(lines, line)

			oi := models.OrderItem{
				ProductID: p.ID,
				Name:      p.Name,
				UnitPrice: p.Price,
				Quantity:  item.Quantity,
				Subtotal:  line.Subtotal(),
			}
			if item.VariantID != "" {
				variant := item.VariantID
				oi.VariantID = &variant
			}
			order.Items = append(order.Items, oi)
		}

		var coupon *models.Coupon
		if code := strings.TrimSpace(req.CouponCode); code != "" {
			coupon, err = store.GetCouponByCode(ctx, tx, code)
			if err != nil && !errors.Is(err, database.ErrCouponNotFound) {
				return err
			}
		}

		quote := s.policy.Quote(lines, coupon, s.now())
		order.SubtotalAmount = quote.Subtotal
		order.DiscountAmount = quote.Discount
		order.ShippingAmount = quote.Shipping
		order.TotalAmount = quote.Total
		if quote.CouponApplied {
			order.CouponCode = &coupon.Code
		}

		if err := store.InsertOrder(ctx, tx, order); err != nil {
			return err
		}

		for _, id := range ids {
			if err := store.DecrementStock(ctx, tx, id, requested[id]); err != nil {
				if errors.Is(err, database.ErrInsufficientStock) {
					return insufficient(byID[id], requested[id])
				}
				return err
			}
		}

		if quote.CouponApplied {
			if err := store.IncrementCouponUsage(ctx, tx, coupon.ID); err != nil {
				return err
			}
		}

		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Info("Order placed",
		zap.Int64("order_id", placed.ID),
		zap.String("order_number", placed.OrderNumber),
		zap.Int64("user_id", userID),
		zap.String("total", placed.TotalAmount.String()),
	)

	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, placed); err != nil {
			logger.Get().Error("Publish order placed event",
				zap.String("order_number", placed.OrderNumber),
				zap.Error(err),
			)
		}
	}

	return placed, nil
}

// ListOrders returns the orders owned by userID, newest first.
func (s *Service) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}

	orders, err := store.ListOrdersByUser(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders for user %d: %w", userID, err)
	}
	return orders, nil
}

func insufficient(p models.Product, requested int) error {
	return &database.InsufficientStockError{
		ProductID:   p.ID,
		ProductName: p.Name,
		Requested:   requested,
		Available:   p.StockQuantity,
	}
}

// newOrderNumber returns "ORD-" followed by ten upper case hex digits.
func newOrderNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "ORD-" + id[:10]
}
