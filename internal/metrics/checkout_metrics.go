package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики конвейера оформления заказа.
type CheckoutMetrics struct {
	// Счётчики исходов
	ordersCommitted prometheus.Counter
	ordersRejected  prometheus.Counter
	ordersFailed    prometheus.Counter

	// Гистограммы
	commitDuration prometheus.Histogram
	linesPerOrder  prometheus.Histogram
	amountMinor    prometheus.Histogram

	// Счётчик событий outbox
	outboxEvents prometheus.Counter

	// Gauge для черновиков в процессе фиксации
	activeSubmits prometheus.Gauge
}

// NewCheckoutMetrics создаёт новый экземпляр метрик оформления заказа.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		ordersCommitted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storemom_orders_committed_total",
			Help: "Total number of orders committed successfully",
		}),
		ordersRejected: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storemom_orders_rejected_total",
			Help: "Total number of orders rejected before any write (validation, empty draft)",
		}),
		ordersFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storemom_orders_failed_total",
			Help: "Total number of order commits that failed and were rolled back",
		}),
		commitDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storemom_order_commit_duration_seconds",
			Help:    "Duration of the order commit transaction in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		linesPerOrder: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storemom_order_lines",
			Help:    "Number of lines per committed order",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}),
		amountMinor: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storemom_order_amount_minor",
			Help:    "Total amount of committed orders in minor currency units",
			Buckets: prometheus.ExponentialBuckets(1000, 4, 10),
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storemom_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		activeSubmits: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storemom_active_submits",
			Help: "Number of order drafts currently being committed",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCommitted фиксирует успешно сохранённый заказ.
func (m *CheckoutMetrics) RecordOrderCommitted(lines int, amountMinor int64) {
	m.ordersCommitted.Inc()
	m.linesPerOrder.Observe(float64(lines))
	m.amountMinor.Observe(float64(amountMinor))
}

// RecordOrderRejected фиксирует отклонение до каких-либо записей.
func (m *CheckoutMetrics) RecordOrderRejected() {
	m.ordersRejected.Inc()
}

// RecordOrderFailed фиксирует откат транзакции фиксации.
func (m *CheckoutMetrics) RecordOrderFailed() {
	m.ordersFailed.Inc()
}

// RecordCommitDuration записывает длительность транзакции фиксации.
func (m *CheckoutMetrics) RecordCommitDuration(duration time.Duration) {
	m.commitDuration.Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *CheckoutMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}

// RecordSubmitStarted увеличивает количество активных фиксаций.
func (m *CheckoutMetrics) RecordSubmitStarted() {
	m.activeSubmits.Inc()
}

// RecordSubmitFinished уменьшает количество активных фиксаций.
func (m *CheckoutMetrics) RecordSubmitFinished() {
	m.activeSubmits.Dec()
}
