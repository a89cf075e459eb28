package catalog

import (
	"context"
	"testing"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/safar/storefront/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService(t *testing.T) {
	db := testutil.NewPostgres(t)
	ctx := context.Background()
	s := NewService(db)

	cat, err := store.CreateCategory(ctx, db, "Outerwear", "outerwear", "")
	require.NoError(t, err)

	coat, err := store.CreateProduct(ctx, db, store.ProductParams{
		Slug: "wool-coat", Name: "Wool Coat", Price: decimal.NewFromInt(90000),
		CompareAtPrice: decimal.NewNullDecimal(decimal.NewFromInt(120000)),
		StockQuantity:  4, CategoryID: &cat.ID,
	})
	require.NoError(t, err)
	_, err = store.AddProductImage(ctx, db, coat.ID, "https://img/coat.jpg", "coat", 0)
	require.NoError(t, err)

	hidden, err := store.CreateProduct(ctx, db, store.ProductParams{
		Slug: "hidden", Name: "Hidden", Price: decimal.NewFromInt(100), Status: models.ProductStatusArchived,
	})
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		u, err := store.CreateUser(ctx, db, "r"+string(rune('a'+i))+"@example.com", "R", "")
		require.NoError(t, err)
		rating := 4
		if i%2 == 0 {
			rating = 5
		}
		_, err = store.CreateReview(ctx, db, store.ReviewParams{ProductID: coat.ID, UserID: u.ID, Rating: rating})
		require.NoError(t, err)
	}

	t.Run("ProductPage", func(t *testing.T) {
		detail, err := s.GetProductBySlug(ctx, "wool-coat")
		require.NoError(t, err)

		assert.Equal(t, "Wool Coat", detail.Name)
		assert.Equal(t, "outerwear", detail.Category.Slug)
		assert.Len(t, detail.Images, 1)
		assert.Len(t, detail.Reviews, 5)
		assert.Equal(t, 7, detail.ReviewCount)
		assert.InDelta(t, 32.0/7.0, detail.AverageRating, 0.0001)
		require.NotNil(t, detail.DiscountPercent)
		assert.Equal(t, 25, *detail.DiscountPercent)
	})

	t.Run("InactiveSlugNotFound", func(t *testing.T) {
		_, err := s.GetProductBySlug(ctx, "hidden")
		assert.ErrorIs(t, err, database.ErrProductNotFound)
	})

	t.Run("Purchasable", func(t *testing.T) {
		p, err := s.GetPurchasableProduct(ctx, coat.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://img/coat.jpg", p.Thumbnail())

		_, err = s.GetPurchasableProduct(ctx, hidden.ID)
		assert.ErrorIs(t, err, database.ErrProductNotFound)
	})

	t.Run("List", func(t *testing.T) {
		products, page, err := s.ListProducts(ctx, store.ProductFilter{Category: "outerwear"})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.EqualValues(t, 1, page.Total)
	})
}
