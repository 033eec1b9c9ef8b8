package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/jirananyenlab/storeMom/internal/domain"
)

const (
	defaultPollInterval   = 1 * time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond
	maxRetryDelay         = 30 * time.Second
)

var (
	publishResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storemom_outbox_publish_total",
		Help: "Outbox publish outcomes grouped by result.",
	}, []string{"result"})
	backlogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storemom_outbox_backlog",
		Help: "Number of pending order events in the outbox.",
	})
	backlogOldestAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storemom_outbox_backlog_oldest_age_seconds",
		Help: "Age in seconds of the oldest pending order event.",
	})
)

// Config задаёт параметры воркера. Нулевые поля заменяются значениями
// по умолчанию; DeadLetters опционален — без него недоставленные события
// только помечаются failed.
type Config struct {
	Logger         *log.Entry
	DeadLetters    domain.OutboxPublisher
	PollInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// Worker переносит события order.committed из outbox в брокер: опрашивает
// pending-записи, публикует с ретраями и помечает результат.
type Worker struct {
	repo        domain.OutboxRepository
	events      domain.OutboxPublisher
	deadLetters domain.OutboxPublisher
	logger      *log.Entry
	poll        time.Duration
	batch       int
	maxAttempts int
	baseDelay   time.Duration
}

// NewWorker создаёт воркер публикации событий заказов.
func NewWorker(repo domain.OutboxRepository, events domain.OutboxPublisher, cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "outbox-worker")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	// Нулевая задержка означает "по умолчанию"; отрицательная — ретраи без пауз.
	if cfg.RetryBaseDelay == 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay
	} else if cfg.RetryBaseDelay < 0 {
		cfg.RetryBaseDelay = 0
	}

	return &Worker{
		repo:        repo,
		events:      events,
		deadLetters: cfg.DeadLetters,
		logger:      logger,
		poll:        cfg.PollInterval,
		batch:       cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.RetryBaseDelay,
	}
}

// Run опрашивает outbox до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.events == nil {
		w.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	w.Drain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain выполняет один цикл: снимает backlog-метрики, публикует батч
// pending-событий и помечает каждое sent либо failed.
func (w *Worker) Drain(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.observeBacklog()

	batch, err := w.repo.PullPending(w.batch)
	if err != nil {
		w.logger.WithError(err).Warn("pull pending order events failed")
		return
	}

	for _, event := range batch {
		if ctx.Err() != nil {
			return
		}
		w.dispatch(ctx, event)
	}

	if len(batch) > 0 {
		w.observeBacklog()
	}
}

// dispatch публикует одно событие с ретраями; после исчерпания попыток
// событие уходит в DLQ и помечается failed.
func (w *Worker) dispatch(ctx context.Context, event domain.OutboxMessage) {
	entry := w.logger.WithFields(log.Fields{
		"outbox_id": event.ID,
		"order_id":  event.OrderID,
	})

	err := w.publishWithRetry(ctx, event)
	if err == nil {
		publishResults.WithLabelValues("sent").Inc()
		if markErr := w.repo.MarkSent(event.ID); markErr != nil {
			entry.WithError(markErr).Warn("mark order event as sent failed")
		}
		return
	}

	entry.WithError(err).Error("order event publish failed after retries")
	if dlqErr := w.deadLetter(event, err); dlqErr != nil {
		entry.WithError(dlqErr).Warn("dead letter publish failed")
		publishResults.WithLabelValues("dlq_error").Inc()
	} else if w.deadLetters != nil {
		publishResults.WithLabelValues("dead_lettered").Inc()
	}
	if markErr := w.repo.MarkFailed(event.ID); markErr != nil {
		entry.WithError(markErr).Warn("mark order event as failed failed")
	}
}

func (w *Worker) publishWithRetry(ctx context.Context, event domain.OutboxMessage) error {
	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if lastErr = w.events.Publish(event); lastErr == nil {
			return nil
		}
		if attempt == w.maxAttempts {
			break
		}
		publishResults.WithLabelValues("retried").Inc()

		delay := w.backoff(attempt)
		if delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("publish order event after %d attempts: %w", w.maxAttempts, lastErr)
}

// backoff возвращает задержку перед попыткой attempt+1: база, удвоенная
// attempt-1 раз, с верхней границей maxRetryDelay.
func (w *Worker) backoff(attempt int) time.Duration {
	if w.baseDelay <= 0 {
		return 0
	}
	shift := attempt - 1
	if shift > 10 {
		shift = 10
	}
	delay := w.baseDelay << shift
	if delay <= 0 || delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

// deadLetterRecord — тело записи в storemom.dlq: исходное событие плюс
// причина и момент отказа.
type deadLetterRecord struct {
	OutboxID  string          `json:"outbox_id"`
	OrderID   int64           `json:"order_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Error     string          `json:"error"`
	FailedAt  time.Time       `json:"failed_at"`
}

func (w *Worker) deadLetter(event domain.OutboxMessage, publishErr error) error {
	if w.deadLetters == nil {
		return nil
	}

	payload, err := json.Marshal(deadLetterRecord{
		OutboxID:  event.ID,
		OrderID:   event.OrderID,
		EventType: event.EventType,
		Payload:   json.RawMessage(event.Payload),
		Error:     publishErr.Error(),
		FailedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal dead letter record: %w", err)
	}

	return w.deadLetters.Publish(domain.OutboxMessage{
		ID:        event.ID,
		OrderID:   event.OrderID,
		EventType: event.EventType,
		Payload:   payload,
	})
}

func (w *Worker) observeBacklog() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.logger.WithError(err).Warn("collect outbox backlog stats failed")
		return
	}

	backlogSize.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		backlogOldestAge.Set(0)
		return
	}
	age := time.Since(stats.OldestPendingAt).Seconds()
	if age < 0 {
		age = 0
	}
	backlogOldestAge.Set(age)
}
