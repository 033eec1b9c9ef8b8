package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jirananyenlab/storeMom/internal/domain"
)

// ProductRepository — in-memory справочник товаров для локальной разработки и
// тестов. Помимо domain.ProductRepository даёт репозиторию заказов атомарное
// резервирование остатков.
type ProductRepository struct {
	mu    sync.RWMutex
	items map[int64]domain.Product
}

// NewProductRepository возвращает пустой in-memory справочник.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{items: make(map[int64]domain.Product)}
}

// Seed кладёт карточку товара в справочник, перезаписывая существующую.
func (r *ProductRepository) Seed(product domain.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[product.ID] = product
}

// Get возвращает копию карточки товара или ErrUnknownProduct.
func (r *ProductRepository) Get(_ context.Context, productID int64) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[productID]
	if !ok {
		return domain.Product{}, domain.ErrUnknownProduct
	}
	return product, nil
}

// CurrentStock возвращает текущий остаток товара или ErrUnknownProduct.
func (r *ProductRepository) CurrentStock(_ context.Context, productID int64) (int32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[productID]
	if !ok {
		return 0, domain.ErrUnknownProduct
	}
	return product.QuantityInStock, nil
}

// reserveAll списывает остатки под все позиции заказа атомарно: сначала под
// одной блокировкой проверяются все позиции, затем применяются все списания.
// При любой ошибке остатки не меняются вовсе.
func (r *ProductRepository) reserveAll(lines []domain.OrderLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Один товар может встречаться в нескольких позициях — проверяем
	// суммарную потребность, а не каждую позицию отдельно.
	need := make(map[int64]int32, len(lines))
	for _, line := range lines {
		need[line.ProductID] += line.Quantity
	}

	for productID, qty := range need {
		product, ok := r.items[productID]
		if !ok {
			return fmt.Errorf("reserve product %d: %w", productID, domain.ErrUnknownProduct)
		}
		if product.QuantityInStock < qty {
			return fmt.Errorf("reserve product %d: %w", productID, domain.ErrInsufficientStock)
		}
	}

	for productID, qty := range need {
		product := r.items[productID]
		product.QuantityInStock -= qty
		r.items[productID] = product
	}

	return nil
}

var _ domain.ProductRepository = (*ProductRepository)(nil)
