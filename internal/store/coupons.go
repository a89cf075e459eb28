package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
)

const couponColumns = `id, code, name, description, discount_type, discount_value, min_purchase,
	max_discount, usage_limit, usage_count, valid_from, valid_until, status, created_at`

func scanCoupon(row rowScanner, coupon *models.Coupon) error {
	var usageLimit sql.NullInt64

	err := row.Scan(
		&coupon.ID,
		&coupon.Code,
		&coupon.Name,
		&coupon.Description,
		&coupon.DiscountType,
		&coupon.DiscountValue,
		&coupon.MinPurchase,
		&coupon.MaxDiscount,
		&usageLimit,
		&coupon.UsageCount,
		&coupon.ValidFrom,
		&coupon.ValidUntil,
		&coupon.Status,
		&coupon.CreatedAt,
	)
	if err != nil {
		return err
	}

	if usageLimit.Valid {
		limit := int(usageLimit.Int64)
		coupon.UsageLimit = &limit
	}
	return nil
}

// CreateCoupon inserts c and fills its generated fields. Codes are stored
// upper case.
func CreateCoupon(ctx context.Context, db Querier, c *models.Coupon) error {
	if c.Status == "" {
		c.Status = models.CouponStatusActive
	}

	query := `
		INSERT INTO coupons (code, name, description, discount_type, discount_value, min_purchase,
			max_discount, usage_limit, usage_count, valid_from, valid_until, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10, $11)
		RETURNING ` + couponColumns

	row := db.QueryRowContext(ctx, query,
		strings.ToUpper(c.Code),
		c.Name,
		c.Description,
		c.DiscountType,
		c.DiscountValue,
		c.MinPurchase,
		c.MaxDiscount,
		c.UsageLimit,
		c.ValidFrom,
		c.ValidUntil,
		c.Status,
	)
	if err := scanCoupon(row, c); err != nil {
		return fmt.Errorf("create coupon: %w", err)
	}

	return nil
}

// GetCouponByCode looks a coupon up case-insensitively.
func GetCouponByCode(ctx context.Context, db Querier, code string) (*models.Coupon, error) {
	coupon := &models.Coupon{}

	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	err := scanCoupon(db.QueryRowContext(ctx, query, strings.ToUpper(strings.TrimSpace(code))), coupon)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}

	return coupon, nil
}

// IncrementCouponUsage bumps the redemption counter in place, so concurrent
// redemptions never lose an increment.
func IncrementCouponUsage(ctx context.Context, tx *sql.Tx, couponID int64) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE coupons SET usage_count = usage_count + 1 WHERE id = $1`,
		couponID)
	if err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrCouponNotFound
	}

	return nil
}
