package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/jirananyenlab/storeMom/internal/domain"
	"github.com/jirananyenlab/storeMom/internal/storage/memory"
	"github.com/jirananyenlab/storeMom/internal/storage/postgres"
)

// Dependencies содержит хранилища приложения и функцию их освобождения.
type Dependencies struct {
	Orders   domain.OrderRepository
	Products domain.ProductRepository
	Outbox   domain.OutboxRepository
	Store    *postgres.Store // nil для in-memory хранилища
	Logger   *log.Entry

	closeFn func() error
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() error {
	if d == nil || d.closeFn == nil {
		return nil
	}
	return d.closeFn()
}

// NewDependencies собирает хранилища согласно конфигурации: postgres с
// опциональной автомиграцией либо in-memory для разработки.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		logger.Info("postgres storage initialized")
		return &Dependencies{
			Orders:   postgres.NewOrderRepository(store),
			Products: postgres.NewProductRepository(store),
			Outbox:   postgres.NewOutboxRepository(store),
			Store:    store,
			Logger:   logger,
			closeFn:  store.Close,
		}, nil

	case StorageDriverMemory, "":
		products := memory.NewProductRepository()
		logger.Info("in-memory storage initialized")
		return &Dependencies{
			Orders:   memory.NewOrderRepository(products),
			Products: products,
			Outbox:   memory.NewOutboxRepository(),
			Logger:   logger,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
