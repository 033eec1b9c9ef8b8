package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jirananyenlab/storeMom/internal/domain"
	"github.com/jirananyenlab/storeMom/internal/messaging/kafka"
	"github.com/jirananyenlab/storeMom/internal/metrics"
)

// LineInput описывает позицию заказа так, как её присылает клиент:
// товар, количество и цена продажи. Себестоимость подставляется
// из справочника товаров при сборке черновика.
type LineInput struct {
	ProductID      int64
	Quantity       int32
	PriceEachMinor int64
}

// Service управляет жизненным циклом заказа: сборка черновика,
// атомарная фиксация и чтение результатов.
type Service interface {
	// BuildDraft собирает черновик заказа, подставляя себестоимость
	// каждой позиции из справочника товаров.
	BuildDraft(ctx context.Context, customerID int64, orderDate time.Time, lines []LineInput) (*domain.OrderDraft, error)
	// Submit фиксирует черновик: единая транзакция на шапку, позиции и
	// резерв остатков. Черновик переходит в committed либо failed.
	Submit(ctx context.Context, draft *domain.OrderDraft) (domain.Order, error)
	// GetOrder возвращает заказ с позициями или ErrOrderNotFound.
	GetOrder(ctx context.Context, orderID int64) (domain.Order, error)
	// ListOrders возвращает заказы клиента, свежие первыми.
	ListOrders(ctx context.Context, customerID int64, limit int) ([]domain.Order, error)
	// CurrentStock возвращает остаток товара или ErrUnknownProduct.
	CurrentStock(ctx context.Context, productID int64) (int32, error)
}

type service struct {
	orders   domain.OrderRepository
	products domain.ProductRepository
	outbox   domain.OutboxRepository
	logger   *log.Entry
	metrics  *metrics.CheckoutMetrics
}

// NewService создаёт рабочий экземпляр сервиса оформления заказа.
func NewService(
	orders domain.OrderRepository,
	products domain.ProductRepository,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &service{
		orders:   orders,
		products: products,
		outbox:   outbox,
		logger:   logger,
		metrics:  metrics.NewCheckoutMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	orders domain.OrderRepository,
	products domain.ProductRepository,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Service {
	if logger == nil {
		logger = log.New().WithField("component", "checkout")
	}
	return &service{
		orders:   orders,
		products: products,
		outbox:   outbox,
		logger:   logger,
	}
}

func (s *service) BuildDraft(ctx context.Context, customerID int64, orderDate time.Time, lines []LineInput) (*domain.OrderDraft, error) {
	if orderDate.IsZero() {
		orderDate = time.Now().UTC()
	}
	draft := domain.NewOrderDraft(customerID, orderDate)

	for _, line := range lines {
		product, err := s.products.Get(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product %d: %w", line.ProductID, err)
		}
		if err := draft.AddLine(product.ID, line.Quantity, line.PriceEachMinor, product.PriceMinor); err != nil {
			return nil, fmt.Errorf("add line for product %d: %w", line.ProductID, err)
		}
	}
	return draft, nil
}

// Submit переводит черновик в submitting и выполняет транзакцию фиксации.
// Пустой черновик и черновик без клиента отклоняются до каких-либо записей
// и остаются редактируемыми. Любая ошибка хранилища оставляет БД нетронутой:
// репозиторий откатывает транзакцию целиком.
func (s *service) Submit(ctx context.Context, draft *domain.OrderDraft) (domain.Order, error) {
	if err := draft.BeginSubmit(); err != nil {
		if domain.IsRecoverable(err) {
			if s.metrics != nil {
				s.metrics.RecordOrderRejected()
			}
			s.logger.WithError(err).WithField("customer_id", draft.CustomerID()).Debug("draft rejected before submit")
		}
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordSubmitStarted()
		defer s.metrics.RecordSubmitFinished()
	}

	start := time.Now()
	committed, err := s.orders.Commit(ctx, draft.Snapshot())
	if s.metrics != nil {
		s.metrics.RecordCommitDuration(time.Since(start))
	}
	if err != nil {
		draft.MarkFailed()
		if s.metrics != nil {
			s.metrics.RecordOrderFailed()
		}
		s.logger.WithError(err).WithFields(log.Fields{
			"customer_id":  draft.CustomerID(),
			"total_amount": draft.TotalAmountMinor(),
		}).Warn("order commit failed, transaction rolled back")
		return domain.Order{}, err
	}

	draft.MarkCommitted(committed)
	if s.metrics != nil {
		s.metrics.RecordOrderCommitted(len(committed.Lines), committed.TotalAmountMinor)
	}
	s.logger.WithFields(log.Fields{
		"order_id":     committed.ID,
		"customer_id":  committed.CustomerID,
		"lines":        len(committed.Lines),
		"total_amount": committed.TotalAmountMinor,
		"profit":       committed.ProfitMinor,
	}).Info("order committed")

	s.emitOrderCommitted(committed)
	return committed, nil
}

func (s *service) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	return s.orders.Get(ctx, orderID)
}

func (s *service) ListOrders(ctx context.Context, customerID int64, limit int) ([]domain.Order, error) {
	return s.orders.ListByCustomer(ctx, customerID, limit)
}

func (s *service) CurrentStock(ctx context.Context, productID int64) (int32, error) {
	return s.products.CurrentStock(ctx, productID)
}

// emitOrderCommitted кладёт событие order.committed в outbox. Заказ уже
// зафиксирован, поэтому ошибка постановки в очередь только логируется.
func (s *service) emitOrderCommitted(order domain.Order) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(kafka.NewOrderCommittedEvent(order))
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("marshal order.committed event failed")
		return
	}

	msg := domain.OutboxMessage{
		OrderID:   order.ID,
		EventType: kafka.EventOrderCommitted,
		Payload:   payload,
	}
	if _, err := s.outbox.Enqueue(msg); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Error("enqueue order.committed event failed")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

var _ Service = (*service)(nil)

// IsRejection сообщает, была ли ошибка отбраковкой до каких-либо записей.
func IsRejection(err error) bool {
	return errors.Is(err, domain.ErrEmptyOrder) ||
		errors.Is(err, domain.ErrCustomerRequired) ||
		errors.Is(err, domain.ErrInvalidLine)
}
