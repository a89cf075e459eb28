package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const orderColumns = `o.id, o.user_id, o.order_number, o.status, o.subtotal_amount, o.discount_amount,
	o.shipping_amount, o.total_amount, o.coupon_code, o.shipping_address, o.payment_method,
	o.created_at, o.updated_at, o.version`

func scanOrder(row rowScanner, order *models.Order, extra ...interface{}) error {
	dest := []interface{}{
		&order.ID,
		&order.UserID,
		&order.OrderNumber,
		&order.Status,
		&order.SubtotalAmount,
		&order.DiscountAmount,
		&order.ShippingAmount,
		&order.TotalAmount,
		&order.CouponCode,
		&order.ShippingAddress,
		&order.PaymentMethod,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	}
	return row.Scan(append(dest, extra...)...)
}

// InsertOrder writes order and its items. ID, timestamps and version are
// filled from the database, as are the items' IDs.
func InsertOrder(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, order_number, status, subtotal_amount, discount_amount,
			shipping_amount, total_amount, coupon_code, shipping_address, payment_method,
			created_at, updated_at, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW(), 1)
		 RETURNING id, created_at, updated_at, version`,
		order.UserID,
		order.OrderNumber,
		order.Status,
		order.SubtotalAmount,
		order.DiscountAmount,
		order.ShippingAmount,
		order.TotalAmount,
		order.CouponCode,
		order.ShippingAddress,
		order.PaymentMethod,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt, &order.Version)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID

		err := tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, variant_id, name, unit_price, quantity, subtotal, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			 RETURNING id, created_at`,
			item.OrderID,
			item.ProductID,
			item.VariantID,
			item.Name,
			item.UnitPrice,
			item.Quantity,
			item.Subtotal,
		).Scan(&item.ID, &item.CreatedAt)
		if err != nil {
			return fmt.Errorf("create order item: %w", err)
		}
	}

	return nil
}

func GetOrder(ctx context.Context, db Querier, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`

	if err := scanOrder(db.QueryRowContext(ctx, query, id), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if err := attachItems(ctx, db, []*models.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// LockOrder reads an order with its items and holds its row lock until tx
// ends.
func LockOrder(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1 FOR UPDATE`

	if err := scanOrder(tx.QueryRowContext(ctx, query, id), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	if err := attachItems(ctx, tx, []*models.Order{order}); err != nil {
		return nil, err
	}

	return order, nil
}

// UpdateOrderStatus moves the order to status if it is still at version.
func UpdateOrderStatus(ctx context.Context, db Querier, id int64, status models.OrderStatus, version int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE orders
		 SET status = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND version = $3`,
		status, id, version)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrOptimisticLockFailed
	}

	return nil
}

// ListOrdersByUser returns every order owned by userID, newest first, with
// items and a thumbnail per item.
func ListOrdersByUser(ctx context.Context, db Querier, userID int64) ([]models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := attachItems(ctx, db, orderRefs(orders)); err != nil {
		return nil, err
	}

	return orders, nil
}

// ListOrders returns one page of all orders, newest first, with the owning
// customer's name and email.
func ListOrders(ctx context.Context, db Querier, page PageRequest) ([]models.Order, Pagination, error) {
	page = page.Normalize(DefaultPageSize)

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, Pagination{}, fmt.Errorf("count orders: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `, u.name, u.email
		FROM orders o
		JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC, o.id DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, page.Limit, page.Offset())
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var (
			order    models.Order
			customer models.Customer
		)
		if err := scanOrder(rows, &order, &customer.Name, &customer.Email); err != nil {
			return nil, Pagination{}, fmt.Errorf("scan order: %w", err)
		}
		order.Customer = &customer
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, Pagination{}, fmt.Errorf("rows error: %w", err)
	}

	if err := attachItems(ctx, db, orderRefs(orders)); err != nil {
		return nil, Pagination{}, err
	}

	return orders, newPagination(page, total), nil
}

func orderRefs(orders []models.Order) []*models.Order {
	refs := make([]*models.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	return refs
}

// attachItems loads the items of all orders in one query. Each item carries
// the URL of its product's first image.
func attachItems(ctx context.Context, db Querier, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*models.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		o.Items = []models.OrderItem{}
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, oi.variant_id, oi.name, oi.unit_price,
		        oi.quantity, oi.subtotal, oi.created_at, COALESCE(img.url, '')
		 FROM order_items oi
		 LEFT JOIN LATERAL (
			SELECT url
			FROM product_images
			WHERE product_id = oi.product_id
			ORDER BY position, id
			LIMIT 1
		 ) img ON TRUE
		 WHERE oi.order_id = ANY($1)
		 ORDER BY oi.order_id, oi.id`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.VariantID,
			&item.Name,
			&item.UnitPrice,
			&item.Quantity,
			&item.Subtotal,
			&item.CreatedAt,
			&item.Thumbnail,
		)
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	return nil
}
