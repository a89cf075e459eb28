// Package cart holds a shopper's line items in a persisted slot. A Cart is
// loaded from its slot once and written back after every mutation; it is not
// safe for concurrent use.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/safar/storefront/internal/cache"
	"github.com/shopspring/decimal"
)

const slotPrefix = "cart-storage"

// MaxQuantity caps a line's quantity at what an order line can hold.
const MaxQuantity = math.MaxInt32

// SlotKey is the persistence key of a user's cart.
func SlotKey(userID int64) string {
	return slotPrefix + ":" + strconv.FormatInt(userID, 10)
}

// Item is one line of a cart. ProductID and VariantID together identify it;
// an empty VariantID is a distinct identity from any named variant.
type Item struct {
	ProductID   int64           `json:"productId"`
	VariantID   string          `json:"variantId,omitempty"`
	VariantName string          `json:"variantName,omitempty"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Image       string          `json:"image,omitempty"`
}

func (i Item) matches(productID int64, variantID string) bool {
	return i.ProductID == productID && i.VariantID == variantID
}

type snapshot struct {
	Items []Item `json:"items"`
}

type Cart struct {
	slot  cache.Cache
	key   string
	items []Item
}

// Load reads the cart stored under key. A missing slot is an empty cart.
func Load(ctx context.Context, slot cache.Cache, key string) (*Cart, error) {
	c := &Cart{slot: slot, key: key, items: []Item{}}

	data, err := slot.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return c, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if snap.Items != nil {
		c.items = snap.Items
	}

	return c, nil
}

func (c *Cart) save(ctx context.Context) error {
	data, err := json.Marshal(snapshot{Items: c.items})
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := c.slot.Set(ctx, c.key, data, 0); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (c *Cart) index(productID int64, variantID string) int {
	for i, item := range c.items {
		if item.matches(productID, variantID) {
			return i
		}
	}
	return -1
}

// AddItem merges item into the cart. When a line with the same identity
// exists its quantity grows by quantity, otherwise item is appended. A
// quantity below 1 adds one unit, and the merged quantity is capped at
// MaxQuantity. item.Quantity is ignored.
func (c *Cart) AddItem(ctx context.Context, item Item, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}
	quantity = min(quantity, MaxQuantity)

	if i := c.index(item.ProductID, item.VariantID); i >= 0 {
		c.items[i].Quantity += min(quantity, MaxQuantity-c.items[i].Quantity)
	} else {
		item.Quantity = quantity
		c.items = append(c.items, item)
	}

	return c.save(ctx)
}

// RemoveItem drops the line with the given identity. Removing a line that is
// not in the cart is not an error.
func (c *Cart) RemoveItem(ctx context.Context, productID int64, variantID string) error {
	i := c.index(productID, variantID)
	if i < 0 {
		return nil
	}

	c.items = append(c.items[:i], c.items[i+1:]...)
	return c.save(ctx)
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes
// the line. Unknown identities are ignored.
func (c *Cart) UpdateQuantity(ctx context.Context, productID int64, quantity int, variantID string) error {
	if quantity <= 0 {
		return c.RemoveItem(ctx, productID, variantID)
	}

	i := c.index(productID, variantID)
	if i < 0 {
		return nil
	}

	c.items[i].Quantity = min(quantity, MaxQuantity)
	return c.save(ctx)
}

func (c *Cart) Clear(ctx context.Context) error {
	c.items = []Item{}
	return c.save(ctx)
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// TotalAmount is the sum of Price*Quantity over all lines.
func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// TotalItems is the sum of quantities over all lines.
func (c *Cart) TotalItems() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}
