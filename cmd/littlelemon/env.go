package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/littlelemon/internal/app"
)

const (
	envHTTPAddr                    = "LL_HTTP_ADDR"
	envGRPCAddr                    = "LL_GRPC_ADDR"
	envMetricsAddr                 = "LL_METRICS_ADDR"
	envStorageDriver               = "LL_STORAGE_DRIVER"
	envPostgresDSN                 = "LL_POSTGRES_DSN"
	envPostgresAutoMigrate         = "LL_POSTGRES_AUTO_MIGRATE"
	envJWTSecret                   = "LL_JWT_SECRET"
	envTokenTTL                    = "LL_TOKEN_TTL"
	envEventsBroker                = "LL_EVENTS_BROKER"
	envKafkaBrokers                = "KAFKA_BROKERS"
	envKafkaTopic                  = "LL_KAFKA_TOPIC"
	envKafkaDLQTopic               = "LL_KAFKA_DLQ_TOPIC"
	envRabbitMQURL                 = "LL_RABBITMQ_URL"
	envRabbitMQExchange            = "LL_RABBITMQ_EXCHANGE"
	envOutboxPollInterval          = "LL_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize             = "LL_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts           = "LL_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay            = "LL_OUTBOX_RETRY_DELAY"
	envIdempotencyCleanupInterval  = "LL_IDEMPOTENCY_CLEANUP_INTERVAL"
	envIdempotencyCleanupBatchSize = "LL_IDEMPOTENCY_CLEANUP_BATCH_SIZE"
	envCORSOrigins                 = "LL_CORS_ORIGINS"
	envLogLevel                    = "LL_LOG_LEVEL"
)

type envLookup func(string) (string, bool)

func positiveInt(v int) bool { return v > 0 }
func positiveDuration(v time.Duration) bool { return v > 0 }

// readConfigFromEnv накладывает переменные окружения на DefaultConfig.
// Некорректные значения не роняют запуск: остаётся дефолт, а в warnings попадает описание.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string
	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, value, err))
	}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	lower := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.ToLower(strings.TrimSpace(v))
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = parseList(v)
		}
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseBool(v)
		if err != nil {
			warn(key, v, err)
			return
		}
		*dst = parsed
	}
	integer := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseInt(v, positiveInt, "must be > 0")
		if err != nil {
			warn(key, v, err)
			return
		}
		*dst = parsed
	}
	duration := func(key string, dst *time.Duration, valid func(time.Duration) bool, rule string) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		parsed, err := parseDuration(v, valid, rule)
		if err != nil {
			warn(key, v, err)
			return
		}
		*dst = parsed
	}

	str(envHTTPAddr, &cfg.HTTPAddr)
	str(envGRPCAddr, &cfg.GRPCAddr)
	str(envMetricsAddr, &cfg.MetricsAddr)

	lower(envStorageDriver, &cfg.StorageDriver)
	str(envPostgresDSN, &cfg.PostgresDSN)
	boolean(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)

	str(envJWTSecret, &cfg.JWTSecret)
	duration(envTokenTTL, &cfg.TokenTTL, positiveDuration, "must be > 0")

	lower(envEventsBroker, &cfg.EventsBroker)
	list(envKafkaBrokers, &cfg.KafkaBrokers)
	str(envKafkaTopic, &cfg.KafkaTopic)
	str(envKafkaDLQTopic, &cfg.KafkaDLQTopic)
	str(envRabbitMQURL, &cfg.RabbitMQURL)
	str(envRabbitMQExchange, &cfg.RabbitMQExchange)
	duration(envOutboxPollInterval, &cfg.OutboxPollInterval, positiveDuration, "must be > 0")
	integer(envOutboxBatchSize, &cfg.OutboxBatchSize)
	integer(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts)
	duration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, func(v time.Duration) bool { return v >= 0 }, "must be >= 0")

	duration(envIdempotencyCleanupInterval, &cfg.IdempotencyCleanupInterval, positiveDuration, "must be > 0")
	integer(envIdempotencyCleanupBatchSize, &cfg.IdempotencyCleanupBatchSize)

	list(envCORSOrigins, &cfg.CORSOrigins)
	lower(envLogLevel, &cfg.LogLevel)

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(value) {
		return 0, fmt.Errorf("%d %s", value, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(value) {
		return 0, fmt.Errorf("%s %s", value, rule)
	}
	return value, nil
}

// parseList разбирает список через запятую, пропуская пустые элементы.
func parseList(raw string) []string {
	chunks := strings.Split(raw, ",")
	items := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		item := strings.TrimSpace(chunk)
		if item == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}
