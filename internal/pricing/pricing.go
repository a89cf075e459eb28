// Package pricing computes order amounts: line subtotal, coupon discount and
// shipping. It is pure arithmetic over decimal amounts; nothing here reads or
// writes storage.
package pricing

import (
	"time"

	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Policy holds the shipping rules applied to every order.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(50000),
		ShippingFee:           decimal.NewFromInt(3000),
	}
}

// Line is one priced line of an order.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Subtotal sums UnitPrice*Quantity over lines.
func Subtotal(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Discount is the outcome of evaluating a coupon against a subtotal.
// Applied is false when the coupon was missing or failed a precondition.
type Discount struct {
	Amount       decimal.Decimal
	FreeShipping bool
	Applied      bool
}

// Redeemable reports whether c is active at now and subtotal reaches its
// minimum purchase. The validity window is inclusive on both ends.
func Redeemable(c *models.Coupon, subtotal decimal.Decimal, now time.Time) bool {
	if c == nil || c.Status != models.CouponStatusActive {
		return false
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidUntil) {
		return false
	}
	if c.MinPurchase.Valid && subtotal.LessThan(c.MinPurchase.Decimal) {
		return false
	}
	return true
}

// ApplyCoupon evaluates c against subtotal. A coupon that is not redeemable
// yields a zero discount rather than an error. The discount never exceeds
// subtotal.
func ApplyCoupon(c *models.Coupon, subtotal decimal.Decimal, now time.Time) Discount {
	if !Redeemable(c, subtotal, now) {
		return Discount{Amount: decimal.Zero}
	}

	d := Discount{Amount: decimal.Zero, Applied: true}

	switch c.DiscountType {
	case models.DiscountPercentage:
		d.Amount = subtotal.Mul(c.DiscountValue).Div(hundred).Floor()
		if c.MaxDiscount.Valid && d.Amount.GreaterThan(c.MaxDiscount.Decimal) {
			d.Amount = c.MaxDiscount.Decimal
		}
	case models.DiscountFixed:
		d.Amount = c.DiscountValue
	case models.DiscountFreeShipping:
		d.FreeShipping = true
	default:
		return Discount{Amount: decimal.Zero}
	}

	if d.Amount.GreaterThan(subtotal) {
		d.Amount = subtotal
	}
	if d.Amount.IsNegative() {
		d.Amount = decimal.Zero
	}

	return d
}

// Shipping returns zero at or above the free shipping threshold or when a
// free shipping coupon applied, and the flat fee otherwise.
func (p Policy) Shipping(subtotal decimal.Decimal, freeShipping bool) decimal.Decimal {
	if freeShipping || subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		return decimal.Zero
	}
	return p.ShippingFee
}

// Quote is the full price breakdown of an order.
type Quote struct {
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Shipping      decimal.Decimal
	Total         decimal.Decimal
	CouponApplied bool
}

// Quote prices lines with an optional coupon (nil for none).
// Total = Subtotal - Discount + Shipping.
func (p Policy) Quote(lines []Line, coupon *models.Coupon, now time.Time) Quote {
	subtotal := Subtotal(lines)
	discount := ApplyCoupon(coupon, subtotal, now)
	shipping := p.Shipping(subtotal, discount.FreeShipping)

	return Quote{
		Subtotal:      subtotal,
		Discount:      discount.Amount,
		Shipping:      shipping,
		Total:         subtotal.Sub(discount.Amount).Add(shipping),
		CouponApplied: discount.Applied,
	}
}
