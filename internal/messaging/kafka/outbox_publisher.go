package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"

	"github.com/jirananyenlab/storeMom/internal/domain"
)

// eventEnvelope — то, что уходит в topic: outbox-метаданные плюс payload события.
type eventEnvelope struct {
	ID          string          `json:"id"`
	OrderID     int64           `json:"order_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	PublishedAt time.Time       `json:"published_at"`
}

// EventPublisher публикует события заказов из outbox в Kafka, ключуя записи
// по order_id: события одного заказа попадают в одну партицию по порядку.
type EventPublisher struct {
	producer *Producer
	topic    string
}

// NewEventPublisher создаёт publisher для ленты событий заказов.
func NewEventPublisher(producer *Producer, topic string) *EventPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &EventPublisher{producer: producer, topic: topic}
}

func (p *EventPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka event publisher is not initialized")
	}

	value, err := json.Marshal(eventEnvelope{
		ID:          event.ID,
		OrderID:     event.OrderID,
		EventType:   event.EventType,
		Payload:     json.RawMessage(event.Payload),
		PublishedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	return p.producer.Publish(p.topic, orderKey(event), value)
}

// DeadLetterPublisher отправляет недоставленные outbox-сообщения в DLQ.
// Исходный topic и время падения уходят заголовками записи.
type DeadLetterPublisher struct {
	producer      *Producer
	originalTopic string
}

// NewDeadLetterPublisher создаёт publisher для storemom.dlq.
func NewDeadLetterPublisher(producer *Producer, originalTopic string) *DeadLetterPublisher {
	if originalTopic == "" {
		originalTopic = TopicOrderEvents
	}
	return &DeadLetterPublisher{producer: producer, originalTopic: originalTopic}
}

func (p *DeadLetterPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka dead letter publisher is not initialized")
	}

	headers := []sarama.RecordHeader{
		{Key: []byte(HeaderOriginalTopic), Value: []byte(p.originalTopic)},
		{Key: []byte(HeaderFailedAt), Value: []byte(time.Now().UTC().Format(time.RFC3339Nano))},
	}
	return p.producer.Publish(TopicDeadLetterQueue, orderKey(event), event.Payload, headers...)
}

// orderKey возвращает ключ партиционирования: order_id, либо id сообщения,
// пока заказ не известен.
func orderKey(event domain.OutboxMessage) string {
	if event.OrderID > 0 {
		return strconv.FormatInt(event.OrderID, 10)
	}
	return event.ID
}

var (
	_ domain.OutboxPublisher = (*EventPublisher)(nil)
	_ domain.OutboxPublisher = (*DeadLetterPublisher)(nil)
)
