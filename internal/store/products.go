package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `p.id, p.slug, p.name, p.description, p.price, p.compare_at_price,
	p.stock_quantity, p.status, p.featured, p.tags, p.category_id,
	p.created_at, p.updated_at, p.version`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner, product *models.Product, extra ...interface{}) error {
	dest := []interface{}{
		&product.ID,
		&product.Slug,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.CompareAtPrice,
		&product.StockQuantity,
		&product.Status,
		&product.Featured,
		pq.Array(&product.Tags),
		&product.CategoryID,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	}
	return row.Scan(append(dest, extra...)...)
}

type ProductParams struct {
	Slug           string
	Name           string
	Description    string
	Price          decimal.Decimal
	CompareAtPrice decimal.NullDecimal
	StockQuantity  int
	Status         string
	Featured       bool
	Tags           []string
	CategoryID     *int64
}

func CreateProduct(ctx context.Context, db Querier, params ProductParams) (*models.Product, error) {
	if params.Status == "" {
		params.Status = models.ProductStatusActive
	}
	if params.Tags == nil {
		params.Tags = []string{}
	}

	product := &models.Product{}

	query := `
		INSERT INTO products AS p (slug, name, description, price, compare_at_price, stock_quantity,
			status, featured, tags, category_id, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	row := db.QueryRowContext(ctx, query,
		params.Slug,
		params.Name,
		params.Description,
		params.Price,
		params.CompareAtPrice,
		params.StockQuantity,
		params.Status,
		params.Featured,
		pq.Array(params.Tags),
		params.CategoryID,
	)
	if err := scanProduct(row, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

// GetProduct returns the product with its category and images.
func GetProduct(ctx context.Context, db Querier, id int64) (*models.Product, error) {
	return getProductWhere(ctx, db, "p.id = $1", id)
}

// GetActiveProductBySlug returns an ACTIVE product with its category and
// images. Any other status reads as not found.
func GetActiveProductBySlug(ctx context.Context, db Querier, slug string) (*models.Product, error) {
	return getProductWhere(ctx, db, "p.slug = $1 AND p.status = 'ACTIVE'", slug)
}

func getProductWhere(ctx context.Context, db Querier, where string, arg interface{}) (*models.Product, error) {
	product := &models.Product{}

	var (
		categoryName sql.NullString
		categorySlug sql.NullString
	)

	query := `
		SELECT ` + productColumns + `, c.name, c.slug
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE ` + where

	err := scanProduct(db.QueryRowContext(ctx, query, arg), product, &categoryName, &categorySlug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	if product.CategoryID != nil && categorySlug.Valid {
		product.Category = &models.Category{
			ID:   *product.CategoryID,
			Name: categoryName.String,
			Slug: categorySlug.String,
		}
	}

	product.Images, err = ListProductImages(ctx, db, product.ID)
	if err != nil {
		return nil, err
	}

	return product, nil
}

// LockActiveProducts selects the ACTIVE products among ids FOR UPDATE, in id
// order so concurrent callers acquire row locks in the same sequence. Ids that
// are unknown or not ACTIVE are simply absent from the result.
func LockActiveProducts(ctx context.Context, tx *sql.Tx, ids []int64) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE p.id = ANY($1) AND p.status = $2
		ORDER BY p.id
		FOR UPDATE`

	rows, err := tx.QueryContext(ctx, query, pq.Array(ids), models.ProductStatusActive)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

// DecrementStock subtracts quantity only while enough stock remains, so a
// decrement can never drive stock below zero. It reports
// ErrInsufficientStock when the guard rejects the update.
func DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

func RestockProduct(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity + $1,
		     updated_at = NOW()
		 WHERE id = $2`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("restock product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

// UpdateProductPrice changes the price when the row is still at version.
func UpdateProductPrice(ctx context.Context, db Querier, productID int64, price decimal.Decimal, version int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products
		 SET price = $1, version = version + 1, updated_at = NOW()
		 WHERE id = $2 AND version = $3`,
		price, productID, version)
	if err != nil {
		return fmt.Errorf("update price: %w", err)
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

func AddProductImage(ctx context.Context, db Querier, productID int64, url, alt string, position int) (*models.ProductImage, error) {
	image := &models.ProductImage{}

	err := db.QueryRowContext(ctx,
		`INSERT INTO product_images (product_id, url, alt, position)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, product_id, url, alt, position`,
		productID, url, alt, position).Scan(
		&image.ID,
		&image.ProductID,
		&image.URL,
		&image.Alt,
		&image.Position,
	)
	if err != nil {
		return nil, fmt.Errorf("add product image: %w", err)
	}

	return image, nil
}

func ListProductImages(ctx context.Context, db Querier, productID int64) ([]models.ProductImage, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, product_id, url, alt, position
		 FROM product_images
		 WHERE product_id = $1
		 ORDER BY position, id`,
		productID)
	if err != nil {
		return nil, fmt.Errorf("list product images: %w", err)
	}
	defer rows.Close()

	var images []models.ProductImage
	for rows.Next() {
		var image models.ProductImage
		if err := rows.Scan(&image.ID, &image.ProductID, &image.URL, &image.Alt, &image.Position); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		images = append(images, image)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return images, nil
}

const (
	SortLatest    = "latest"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortName      = "name"
)

var productOrderBy = map[string]string{
	SortLatest:    "p.created_at DESC, p.id DESC",
	SortPriceAsc:  "p.price ASC, p.id ASC",
	SortPriceDesc: "p.price DESC, p.id DESC",
	SortName:      "p.name ASC, p.id ASC",
}

// ProductFilter narrows a catalog listing. Only ACTIVE products are listed
// unless AllStatuses is set.
type ProductFilter struct {
	Category    string
	Search      string
	Sort        string
	AllStatuses bool
	PageRequest
}

func (f ProductFilter) where() (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	if !f.AllStatuses {
		args = append(args, models.ProductStatusActive)
		conds = append(conds, fmt.Sprintf("p.status = $%d", len(args)))
	}

	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("c.slug = $%d", len(args)))
	}

	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		like := len(args)
		args = append(args, search)
		conds = append(conds, fmt.Sprintf(
			"(p.name ILIKE $%d OR p.description ILIKE $%d OR $%d = ANY(p.tags))", like, like, len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListProducts returns one page of products, each with its category and its
// first image by position.
func ListProducts(ctx context.Context, db Querier, filter ProductFilter) ([]models.Product, Pagination, error) {
	page := filter.PageRequest.Normalize(DefaultPageSize)
	where, args := filter.where()

	var total int64
	countQuery := `
		SELECT COUNT(*)
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		` + where
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, Pagination{}, fmt.Errorf("count products: %w", err)
	}

	orderBy, ok := productOrderBy[filter.Sort]
	if !ok {
		orderBy = productOrderBy[SortLatest]
	}

	query := fmt.Sprintf(`
		SELECT %s, c.name, c.slug, img.id, img.url, img.alt, img.position
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		LEFT JOIN LATERAL (
			SELECT id, url, alt, position
			FROM product_images
			WHERE product_id = p.id
			ORDER BY position, id
			LIMIT 1
		) img ON TRUE
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		productColumns, where, orderBy, len(args)+1, len(args)+2)

	rows, err := db.QueryContext(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var (
			product      models.Product
			categoryName sql.NullString
			categorySlug sql.NullString
			imageID      sql.NullInt64
			imageURL     sql.NullString
			imageAlt     sql.NullString
			imagePos     sql.NullInt32
		)

		err := scanProduct(rows, &product,
			&categoryName, &categorySlug,
			&imageID, &imageURL, &imageAlt, &imagePos)
		if err != nil {
			return nil, Pagination{}, fmt.Errorf("scan product: %w", err)
		}

		if product.CategoryID != nil && categorySlug.Valid {
			product.Category = &models.Category{
				ID:   *product.CategoryID,
				Name: categoryName.String,
				Slug: categorySlug.String,
			}
		}
		if imageID.Valid {
			product.Images = []models.ProductImage{{
				ID:        imageID.Int64,
				ProductID: product.ID,
				URL:       imageURL.String,
				Alt:       imageAlt.String,
				Position:  int(imagePos.Int32),
			}}
		}

		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, Pagination{}, fmt.Errorf("rows error: %w", err)
	}

	return products, newPagination(page, total), nil
}

func CreateCategory(ctx context.Context, db Querier, name, slug, description string) (*models.Category, error) {
	category := &models.Category{}

	err := db.QueryRowContext(ctx,
		`INSERT INTO categories (name, slug, description)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, slug, description`,
		name, slug, description).Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.Description,
	)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	return category, nil
}
