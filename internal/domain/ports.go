package domain

import (
	"context"
	"time"
)

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Commit атомарно записывает шапку заказа и все его позиции, попутно
	// резервируя остатки товаров в той же транзакции. Возвращает заказ с
	// присвоенными БД идентификаторами. Любая ошибка означает полный откат:
	// частично записанных заказов не бывает.
	Commit(ctx context.Context, order Order) (Order, error)
	// Get возвращает заказ с позициями или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, orderID int64) (Order, error)
	// ListByCustomer возвращает заказы клиента, свежие первыми,
	// с опциональным ограничением на количество.
	ListByCustomer(ctx context.Context, customerID int64, limit int) ([]Order, error)
}

// ProductRepository описывает чтение справочника товаров, нужное ядру заказов.
type ProductRepository interface {
	// Get возвращает карточку товара (себестоимость, остаток) или ErrUnknownProduct.
	Get(ctx context.Context, productID int64) (Product, error)
	// CurrentStock возвращает текущий остаток товара или ErrUnknownProduct.
	CurrentStock(ctx context.Context, productID int64) (int32, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит событие заказа для последующей публикации.
// Outbox этого сервиса держит только события заказов, поэтому вместо
// обобщённой пары aggregate_type/aggregate_id сообщение несёт OrderID.
type OutboxMessage struct {
	ID        string
	OrderID   int64
	EventType string
	Payload   []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
