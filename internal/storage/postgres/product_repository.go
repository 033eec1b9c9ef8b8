package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jirananyenlab/storeMom/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
// Справочник товаров для ядра заказов read-only: запись остатков происходит
// только внутри транзакции фиксации заказа.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.db}
}

// Get возвращает карточку товара или ErrUnknownProduct.
func (r *productRepository) Get(ctx context.Context, productID int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		product   domain.Product
		createdAt time.Time
		updatedAt time.Time
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT product_id, product_name, quantity_in_stock, price_minor, volume, created_at, updated_at
		FROM product
		WHERE product_id = $1
	`, productID).Scan(
		&product.ID, &product.Name, &product.QuantityInStock,
		&product.PriceMinor, &product.Volume, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrUnknownProduct
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	product.CreatedAt = createdAt.UTC()
	product.UpdatedAt = updatedAt.UTC()

	return product, nil
}

// CurrentStock возвращает текущий остаток товара или ErrUnknownProduct.
func (r *productRepository) CurrentStock(ctx context.Context, productID int64) (int32, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var stock int32
	err := r.db.QueryRowContext(ctx, `
		SELECT quantity_in_stock
		FROM product
		WHERE product_id = $1
	`, productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrUnknownProduct
		}
		return 0, fmt.Errorf("select product stock: %w", err)
	}

	return stock, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
