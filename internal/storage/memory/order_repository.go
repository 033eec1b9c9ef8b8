package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jirananyenlab/storeMom/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository, зеркалящая
// семантику PostgreSQL-версии: генерация ключей, резервирование остатков и
// запись заказа происходят как единое целое.
type orderRepositoryInMemory struct {
	mu       sync.RWMutex
	products *ProductRepository
	items    map[int64]domain.Order

	nextOrderID int64
	nextLineID  int64
}

// NewOrderRepository возвращает in-memory репозиторий заказов поверх
// справочника товаров (остатки списываются в нём).
func NewOrderRepository(products *ProductRepository) domain.OrderRepository {
	return &orderRepositoryInMemory{
		products:    products,
		items:       make(map[int64]domain.Order),
		nextOrderID: 1,
		nextLineID:  1,
	}
}

// Commit резервирует остатки и сохраняет заказ с позициями. Ошибка
// резервирования означает, что ни заказ, ни остатки не изменились.
func (r *orderRepositoryInMemory) Commit(_ context.Context, order domain.Order) (domain.Order, error) {
	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errs[0]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// reserveAll атомарен: при ошибке остатки не тронуты, заказ не записан.
	if err := r.products.reserveAll(order.Lines); err != nil {
		return domain.Order{}, err
	}

	order.ID = r.nextOrderID
	r.nextOrderID++
	order.CreatedAt = time.Now().UTC()

	lines := make([]domain.OrderLine, len(order.Lines))
	copy(lines, order.Lines)
	for i := range lines {
		lines[i].ID = r.nextLineID
		r.nextLineID++
		lines[i].OrderID = order.ID
	}
	order.Lines = lines

	r.items[order.ID] = order
	return order, nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, orderID int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// ListByCustomer возвращает заказы клиента, свежие первыми.
func (r *orderRepositoryInMemory) ListByCustomer(_ context.Context, customerID int64, limit int) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if order.CustomerID != customerID {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].OrderDate.Equal(result[j].OrderDate) {
			return result[i].OrderDate.After(result[j].OrderDate)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// cloneOrder возвращает копию заказа с независимым срезом позиций.
func cloneOrder(order domain.Order) domain.Order {
	lines := make([]domain.OrderLine, len(order.Lines))
	copy(lines, order.Lines)
	order.Lines = lines
	return order
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
