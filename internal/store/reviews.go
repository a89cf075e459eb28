package store

import (
	"context"
	"fmt"

	"github.com/safar/storefront/internal/models"
)

type ReviewParams struct {
	ProductID int64
	UserID    int64
	Rating    int
	Title     string
	Content   string
	Verified  bool
}

func CreateReview(ctx context.Context, db Querier, params ReviewParams) (*models.Review, error) {
	review := &models.Review{}

	err := db.QueryRowContext(ctx,
		`INSERT INTO reviews (product_id, user_id, rating, title, content, verified)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, product_id, user_id, rating, title, content, verified, helpful, created_at`,
		params.ProductID, params.UserID, params.Rating, params.Title, params.Content, params.Verified).Scan(
		&review.ID,
		&review.ProductID,
		&review.UserID,
		&review.Rating,
		&review.Title,
		&review.Content,
		&review.Verified,
		&review.Helpful,
		&review.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	return review, nil
}

// ListRecentReviews returns up to limit reviews of a product, newest first,
// with the reviewer's name.
func ListRecentReviews(ctx context.Context, db Querier, productID int64, limit int) ([]models.Review, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT r.id, r.product_id, r.user_id, u.name, r.rating, r.title, r.content,
		        r.verified, r.helpful, r.created_at
		 FROM reviews r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.product_id = $1
		 ORDER BY r.created_at DESC, r.id DESC
		 LIMIT $2`,
		productID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var review models.Review
		err := rows.Scan(
			&review.ID,
			&review.ProductID,
			&review.UserID,
			&review.ReviewerName,
			&review.Rating,
			&review.Title,
			&review.Content,
			&review.Verified,
			&review.Helpful,
			&review.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return reviews, nil
}

// ReviewStats returns the review count and average rating of a product. The
// average is 0 when there are no reviews.
func ReviewStats(ctx context.Context, db Querier, productID int64) (int, float64, error) {
	var (
		count int
		avg   float64
	)

	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating), 0)::float8
		 FROM reviews
		 WHERE product_id = $1`,
		productID).Scan(&count, &avg)
	if err != nil {
		return 0, 0, fmt.Errorf("review stats: %w", err)
	}

	return count, avg, nil
}
