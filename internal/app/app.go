package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/jirananyenlab/storeMom/internal/health"
	"github.com/jirananyenlab/storeMom/internal/service/checkout"
	outboxworker "github.com/jirananyenlab/storeMom/internal/service/outbox"
	"github.com/jirananyenlab/storeMom/internal/transport/httpapi"
	"github.com/jirananyenlab/storeMom/internal/version"
)

// Run собирает зависимости согласно конфигурации и запускает HTTP API,
// сервер метрик и outbox worker. Блокируется до отмены ctx или падения сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := deps.Close(); closeErr != nil {
			logger.WithError(closeErr).Warn("storage close failed")
		}
	}()

	kafkaProducer, eventPublisher, deadLetterPublisher := initEventPublishing(cfg.KafkaBrokers, cfg.OutboxTopic, logger)
	defer closeEventPublishing(kafkaProducer, logger)

	checkoutSvc := checkout.NewService(deps.Orders, deps.Products, deps.Outbox, logger.WithField("layer", "checkout"))

	// Health checks
	healthHandler := healthcheck.NewHandler(version.Version())
	if deps.Store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewStorageChecker(deps.Store, 2*time.Second))
	}
	healthHandler.RegisterChecker("outbox", healthcheck.NewOutboxChecker(deps.Outbox, 0, 0))

	// Outbox worker публикует order.committed в Kafka, когда брокеры заданы.
	if kafkaProducer != nil {
		worker := outboxworker.NewWorker(deps.Outbox, eventPublisher, outboxworker.Config{
			Logger:         logger.WithField("component", "outbox-worker"),
			DeadLetters:    deadLetterPublisher,
			PollInterval:   cfg.OutboxPollInterval,
			BatchSize:      cfg.OutboxBatchSize,
			MaxAttempts:    cfg.OutboxMaxAttempts,
			RetryBaseDelay: cfg.OutboxRetryDelay,
		})
		go worker.Run(ctx)
	} else {
		logger.Info("kafka brokers are not configured, outbox worker is disabled")
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	apiHandler := httpapi.NewHandler(checkoutSvc, logger.WithField("layer", "http"))
	apiSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(apiHandler, healthHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/readyz, %s/livez", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
