package kafka

import (
	"time"

	"github.com/jirananyenlab/storeMom/internal/domain"
)

// EventOrderCommitted — единственный тип события, который сервис публикует:
// заказ зафиксирован в БД вместе с позициями и резервом остатков.
const EventOrderCommitted = "order.committed"

// Topics сервиса.
const (
	TopicOrderEvents     = "storemom.order.events"
	TopicDeadLetterQueue = "storemom.dlq"
)

// Заголовки dead letter записей.
const (
	HeaderOriginalTopic = "x-original-topic"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent — тело события заказа в ленте storemom.order.events.
type OrderEvent struct {
	EventType        string    `json:"event_type"`
	OrderID          int64     `json:"order_id"`
	CustomerID       int64     `json:"customer_id"`
	TotalAmountMinor int64     `json:"total_amount_minor"`
	ProfitMinor      int64     `json:"profit_minor"`
	Lines            int       `json:"lines"`
	CommittedAt      time.Time `json:"committed_at"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewOrderCommittedEvent собирает событие order.committed из зафиксированного заказа.
func NewOrderCommittedEvent(order domain.Order) OrderEvent {
	return OrderEvent{
		EventType:        EventOrderCommitted,
		OrderID:          order.ID,
		CustomerID:       order.CustomerID,
		TotalAmountMinor: order.TotalAmountMinor,
		ProfitMinor:      order.ProfitMinor,
		Lines:            len(order.Lines),
		CommittedAt:      order.CreatedAt.UTC(),
		Timestamp:        time.Now().UTC(),
	}
}
