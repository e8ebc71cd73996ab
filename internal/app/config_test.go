package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.JWTSecret = "test-secret"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, EventsBrokerNone, cfg.EventsBroker)
	assert.True(t, cfg.PostgresAutoMigrate)
	assert.Positive(t, cfg.TokenTTL)
	assert.Error(t, cfg.Validate(), "секрет JWT обязателен")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid memory", mutate: func(*Config) {}},
		{
			name:    "missing http addr",
			mutate:  func(c *Config) { c.HTTPAddr = "" },
			wantErr: "http address is required",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.StorageDriver = StorageDriverPostgres },
			wantErr: "LL_POSTGRES_DSN",
		},
		{
			name: "postgres with dsn",
			mutate: func(c *Config) {
				c.StorageDriver = StorageDriverPostgres
				c.PostgresDSN = "postgres://localhost/littlelemon"
			},
		},
		{
			name:    "unsupported storage",
			mutate:  func(c *Config) { c.StorageDriver = "sqlite" },
			wantErr: `unsupported storage driver "sqlite"`,
		},
		{
			name:    "kafka without brokers",
			mutate:  func(c *Config) { c.EventsBroker = EventsBrokerKafka },
			wantErr: "KAFKA_BROKERS",
		},
		{
			name:    "rabbitmq without url",
			mutate:  func(c *Config) { c.EventsBroker = EventsBrokerRabbitMQ },
			wantErr: "LL_RABBITMQ_URL",
		},
		{
			name:    "unsupported broker",
			mutate:  func(c *Config) { c.EventsBroker = "nats" },
			wantErr: `unsupported events broker "nats"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidateJoinsErrors(t *testing.T) {
	cfg := Config{StorageDriver: StorageDriverMemory, EventsBroker: EventsBrokerNone}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http address is required")
	assert.Contains(t, err.Error(), "LL_JWT_SECRET is required")
}
