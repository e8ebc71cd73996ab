package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/littlelemon/internal/domain"
	"github.com/vladislavdragonenkov/littlelemon/internal/health"
	"github.com/vladislavdragonenkov/littlelemon/internal/storage/memory"
	"github.com/vladislavdragonenkov/littlelemon/internal/storage/postgres"
)

// runtimeDependencies содержит репозитории выбранного хранилища.
type runtimeDependencies struct {
	menu        domain.MenuRepository
	carts       domain.CartRepository
	orders      domain.OrderRepository
	members     domain.MembershipRepository
	outbox      domain.OutboxRepository
	timeline    domain.TimelineRepository
	idempotency domain.IdempotencyRepository

	storageCheck health.Checker
	close        func() error
}

func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		store := memory.NewStore()
		logger.Warn("using in-memory storage; data is lost on restart")
		return &runtimeDependencies{
			menu:        memory.NewMenuRepository(store),
			carts:       memory.NewCartRepository(store),
			orders:      memory.NewOrderRepository(store),
			members:     memory.NewMembershipRepository(store),
			outbox:      memory.NewOutboxRepository(store),
			timeline:    memory.NewTimelineRepository(),
			idempotency: memory.NewIdempotencyRepository(),
			storageCheck: health.NewSimpleChecker(StorageDriverMemory, func(context.Context) error {
				return nil
			}),
			close: func() error { return nil },
		}, nil
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a DSN")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN, postgres.WithLogger(logger.WithField("layer", "postgres")))
		if err != nil {
			return nil, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("postgres schema is up to date")
		}
		return &runtimeDependencies{
			menu:         postgres.NewMenuRepository(store),
			carts:        postgres.NewCartRepository(store),
			orders:       postgres.NewOrderRepository(store),
			members:      postgres.NewMembershipRepository(store),
			outbox:       postgres.NewOutboxRepository(store),
			timeline:     postgres.NewTimelineRepository(store),
			idempotency:  postgres.NewIdempotencyRepository(store),
			storageCheck: health.NewSimpleChecker(StorageDriverPostgres, store.Ping),
			close:        store.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
