package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int       `json:"version"`
}

const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

type ProductImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"productId"`
	URL       string `json:"url"`
	Alt       string `json:"alt,omitempty"`
	Position  int    `json:"position"`
}

type Product struct {
	ID             int64               `json:"id"`
	Slug           string              `json:"slug"`
	Name           string              `json:"name"`
	Description    string              `json:"description,omitempty"`
	Price          decimal.Decimal     `json:"price"`
	CompareAtPrice decimal.NullDecimal `json:"compareAtPrice"`
	StockQuantity  int                 `json:"stockQuantity"`
	Status         string              `json:"status"`
	Featured       bool                `json:"featured"`
	Tags           []string            `json:"tags"`
	CategoryID     *int64              `json:"categoryId,omitempty"`
	Category       *Category           `json:"category,omitempty"`
	Images         []ProductImage      `json:"images,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
	Version        int                 `json:"version"`
}

// Thumbnail returns the URL of the lowest-positioned image, or "".
func (p *Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// DiscountPercent is the markdown from CompareAtPrice to Price rounded to a
// whole percent, or nil without a positive CompareAtPrice.
func (p *Product) DiscountPercent() *int {
	if !p.CompareAtPrice.Valid || !p.CompareAtPrice.Decimal.IsPositive() {
		return nil
	}

	compare := p.CompareAtPrice.Decimal
	pct := int(compare.Sub(p.Price).Div(compare).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	return &pct
}

const (
	ProductStatusDraft    = "DRAFT"
	ProductStatusActive   = "ACTIVE"
	ProductStatusArchived = "ARCHIVED"
)

type Review struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"productId"`
	UserID       int64     `json:"userId"`
	ReviewerName string    `json:"reviewerName"`
	Rating       int       `json:"rating"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Verified     bool      `json:"verified"`
	Helpful      int       `json:"helpful"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProductDetail is the storefront product page payload.
type ProductDetail struct {
	Product
	Reviews         []Review `json:"reviews"`
	ReviewCount     int      `json:"reviewCount"`
	AverageRating   float64  `json:"averageRating"`
	DiscountPercent *int     `json:"discountPercent,omitempty"`
}

type DiscountType string

const (
	DiscountPercentage   DiscountType = "PERCENTAGE"
	DiscountFixed        DiscountType = "FIXED"
	DiscountFreeShipping DiscountType = "FREE_SHIPPING"
)

const (
	CouponStatusActive   = "ACTIVE"
	CouponStatusInactive = "INACTIVE"
)

type Coupon struct {
	ID            int64               `json:"id"`
	Code          string              `json:"code"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	DiscountType  DiscountType        `json:"discountType"`
	DiscountValue decimal.Decimal     `json:"discountValue"`
	MinPurchase   decimal.NullDecimal `json:"minPurchase"`
	MaxDiscount   decimal.NullDecimal `json:"maxDiscount"`
	UsageLimit    *int                `json:"usageLimit,omitempty"`
	UsageCount    int                 `json:"usageCount"`
	ValidFrom     time.Time           `json:"validFrom"`
	ValidUntil    time.Time           `json:"validUntil"`
	Status        string              `json:"status"`
	CreatedAt     time.Time           `json:"createdAt"`
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusCompleted},
}

// Valid reports whether s is one of the known order states.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in state s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ShippingAddress is stored as JSONB on the order row.
type ShippingAddress struct {
	RecipientName string `json:"recipientName" validate:"required"`
	Phone         string `json:"phone" validate:"required"`
	PostalCode    string `json:"postalCode" validate:"required"`
	Address1      string `json:"address1" validate:"required"`
	Address2      string `json:"address2,omitempty"`
	Memo          string `json:"memo,omitempty"`
}

func (a ShippingAddress) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *ShippingAddress) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*a = ShippingAddress{}
		return nil
	default:
		return fmt.Errorf("scan shipping address: unsupported type %T", src)
	}
	if err := json.Unmarshal(data, a); err != nil {
		return fmt.Errorf("scan shipping address: %w", err)
	}
	return nil
}

type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"userId"`
	OrderNumber     string          `json:"orderNumber"`
	Status          OrderStatus     `json:"status"`
	SubtotalAmount  decimal.Decimal `json:"subtotalAmount"`
	DiscountAmount  decimal.Decimal `json:"discountAmount"`
	ShippingAmount  decimal.Decimal `json:"shippingAmount"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	CouponCode      *string         `json:"couponCode"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Version         int             `json:"version"`
	Items           []OrderItem     `json:"items"`
	Customer        *Customer       `json:"customer,omitempty"`
}

// Customer is the owner summary shown on admin order listings.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OrderItem is a line snapshot: name and unit price are copied from the
// product when the order is placed and never re-read from the catalog.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"orderId"`
	ProductID int64           `json:"productId"`
	VariantID *string         `json:"variantId,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Thumbnail string          `json:"thumbnail,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
