package app

import (
	"context"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/littlelemon/internal/health"
)

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return log.NewEntry(logger)
}

func TestInitRuntimeDependenciesMemory(t *testing.T) {
	cfg := validConfig()

	deps, err := initRuntimeDependencies(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.close() })

	assert.NotNil(t, deps.menu)
	assert.NotNil(t, deps.carts)
	assert.NotNil(t, deps.orders)
	assert.NotNil(t, deps.members)
	assert.NotNil(t, deps.outbox)
	assert.NotNil(t, deps.timeline)
	assert.NotNil(t, deps.idempotency)

	check := deps.storageCheck.Check(context.Background())
	assert.Equal(t, health.StatusHealthy, check.Status)
	assert.Equal(t, StorageDriverMemory, check.Name)
}

func TestInitRuntimeDependenciesPostgresRequiresDSN(t *testing.T) {
	cfg := validConfig()
	cfg.StorageDriver = StorageDriverPostgres

	_, err := initRuntimeDependencies(context.Background(), cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DSN")
}

func TestInitRuntimeDependenciesUnsupported(t *testing.T) {
	cfg := validConfig()
	cfg.StorageDriver = "mongo"

	_, err := initRuntimeDependencies(context.Background(), cfg, quietLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage driver")
}

func TestInitEventPublishers(t *testing.T) {
	t.Run("none disables worker", func(t *testing.T) {
		publishers, err := initEventPublishers(validConfig(), quietLogger())
		require.NoError(t, err)
		assert.False(t, publishers.enabled())
		assert.NotPanics(t, publishers.close)
	})

	t.Run("kafka without brokers", func(t *testing.T) {
		cfg := validConfig()
		cfg.EventsBroker = EventsBrokerKafka

		_, err := initEventPublishers(cfg, quietLogger())
		require.Error(t, err)
	})

	t.Run("unsupported", func(t *testing.T) {
		cfg := validConfig()
		cfg.EventsBroker = "nats"

		_, err := initEventPublishers(cfg, quietLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nats")
	})
}
