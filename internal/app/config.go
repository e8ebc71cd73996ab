// Package app собирает сервис: хранилище, брокер событий, HTTP API, метрики и gRPC health.
package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/littlelemon/internal/identity"
)

// Драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Брокеры событий outbox.
const (
	EventsBrokerNone     = "none"
	EventsBrokerKafka    = "kafka"
	EventsBrokerRabbitMQ = "rabbitmq"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	JWTSecret string
	TokenTTL  time.Duration

	EventsBroker       string
	KafkaBrokers       []string
	KafkaTopic         string
	KafkaDLQTopic      string
	RabbitMQURL        string
	RabbitMQExchange   string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	IdempotencyCleanupInterval  time.Duration
	IdempotencyCleanupBatchSize int

	CORSOrigins []string
	LogLevel    string
}

// DefaultConfig возвращает настройки для локального запуска на memory-хранилище.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8000",
		GRPCAddr:    ":50051",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		TokenTTL: identity.DefaultTokenTTL,

		EventsBroker:       EventsBrokerNone,
		KafkaTopic:         "littlelemon.order.events",
		KafkaDLQTopic:      "littlelemon.order.dlq",
		RabbitMQExchange:   "littlelemon.orders",
		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   50 * time.Millisecond,

		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,

		LogLevel: "info",
	}
}

// Validate проверяет согласованность настроек до старта.
func (c Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("LL_JWT_SECRET is required"))
	}

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("LL_POSTGRES_DSN is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	switch c.EventsBroker {
	case EventsBrokerNone:
	case EventsBrokerKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, errors.New("KAFKA_BROKERS is required for kafka broker"))
		}
	case EventsBrokerRabbitMQ:
		if c.RabbitMQURL == "" {
			errs = append(errs, errors.New("LL_RABBITMQ_URL is required for rabbitmq broker"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported events broker %q", c.EventsBroker))
	}
	return errors.Join(errs...)
}
