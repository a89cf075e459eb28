// Package catalog serves the read side of the storefront: product listings
// and product pages.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
)

const recentReviewLimit = 5

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func (s *Service) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, store.Pagination, error) {
	return store.ListProducts(ctx, s.db, filter)
}

// GetProductBySlug builds the product page of an ACTIVE product: images,
// category, the most recent reviews and rating statistics over all reviews.
func (s *Service) GetProductBySlug(ctx context.Context, slug string) (*models.ProductDetail, error) {
	product, err := store.GetActiveProductBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}

	reviews, err := store.ListRecentReviews(ctx, s.db, product.ID, recentReviewLimit)
	if err != nil {
		return nil, err
	}

	count, avg, err := store.ReviewStats(ctx, s.db, product.ID)
	if err != nil {
		return nil, err
	}

	return &models.ProductDetail{
		Product:         *product,
		Reviews:         reviews,
		ReviewCount:     count,
		AverageRating:   avg,
		DiscountPercent: product.DiscountPercent(),
	}, nil
}

// GetPurchasableProduct returns an ACTIVE product by id, with images.
func (s *Service) GetPurchasableProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := store.GetProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if product.Status != models.ProductStatusActive {
		return nil, fmt.Errorf("product %d is %s: %w", id, product.Status, database.ErrProductNotFound)
	}
	return product, nil
}
