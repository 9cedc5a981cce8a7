package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/apna-store/internal/domain"
)

// ProductRepository reads and writes the catalog table. The storefront only
// reads it once at startup to build a Store; writes come from the seed command.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, brand, category, price, original_price,
		       rating, reviews, in_stock, image, images, sizes, colors, tags, featured
		FROM catalog.products
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []domain.Product
	for rows.Next() {
		var (
			p             domain.Product
			originalPrice decimal.NullDecimal
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Brand, &p.Category, &p.Price, &originalPrice,
			&p.Rating, &p.Reviews, &p.InStock, &p.Image,
			pq.Array(&p.Images), pq.Array(&p.Sizes), pq.Array(&p.Colors), pq.Array(&p.Tags),
			&p.Featured,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if originalPrice.Valid {
			p.OriginalPrice = &originalPrice.Decimal
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// Upsert writes products in one transaction, replacing rows with the same id.
func (r *ProductRepository) Upsert(ctx context.Context, products []domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range products {
		var originalPrice decimal.NullDecimal
		if p.OriginalPrice != nil {
			originalPrice = decimal.NewNullDecimal(*p.OriginalPrice)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO catalog.products (id, name, description, brand, category, price, original_price,
			                      rating, reviews, in_stock, image, images, sizes, colors, tags, featured)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				brand = EXCLUDED.brand,
				category = EXCLUDED.category,
				price = EXCLUDED.price,
				original_price = EXCLUDED.original_price,
				rating = EXCLUDED.rating,
				reviews = EXCLUDED.reviews,
				in_stock = EXCLUDED.in_stock,
				image = EXCLUDED.image,
				images = EXCLUDED.images,
				sizes = EXCLUDED.sizes,
				colors = EXCLUDED.colors,
				tags = EXCLUDED.tags,
				featured = EXCLUDED.featured
		`, p.ID, p.Name, p.Description, p.Brand, p.Category, p.Price, originalPrice,
			p.Rating, p.Reviews, p.InStock, p.Image,
			pq.Array(p.Images), pq.Array(p.Sizes), pq.Array(p.Colors), pq.Array(p.Tags),
			p.Featured)
		if err != nil {
			return fmt.Errorf("upsert product %d: %w", p.ID, err)
		}
	}

	return tx.Commit()
}
