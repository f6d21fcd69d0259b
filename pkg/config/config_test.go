package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("market-service")
	require.NoError(t, err)

	assert.Equal(t, "market-service", cfg.ServiceName)
	assert.Equal(t, ":3000", cfg.HTTPAddr)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Second, cfg.Reservation.LockTimeout)
	assert.True(t, decimal.RequireFromString("5").Equal(cfg.Reservation.FallbackUnitPrice))
	assert.Equal(t, int64(1), cfg.Reservation.CurrentUserID)
	assert.Equal(t, 10*time.Minute, cfg.IdempotencyTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("KAFKA_ADDR", "k1:9092, k2:9092")
	t.Setenv("LOCK_TIMEOUT", "750ms")
	t.Setenv("FALLBACK_UNIT_PRICE", "3.25")
	t.Setenv("CURRENT_USER_ID", "42")

	cfg, err := Load("market-service")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.Reservation.LockTimeout)
	assert.Equal(t, "3.25", cfg.Reservation.FallbackUnitPrice.StringFixed(2))
	assert.Equal(t, int64(42), cfg.Reservation.CurrentUserID)
}

func TestLoad_InvalidFallbackPrice(t *testing.T) {
	t.Setenv("FALLBACK_UNIT_PRICE", "five")

	_, err := Load("market-service")
	assert.ErrorContains(t, err, "FALLBACK_UNIT_PRICE")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Postgres: PostgresConfig{URL: "postgres://x", MaxConns: 4},
			Kafka:    KafkaConfig{Brokers: []string{"localhost:9092"}},
			Reservation: ReservationConfig{
				LockTimeout:       time.Second,
				FallbackUnitPrice: decimal.NewFromInt(5),
				CurrentUserID:     1,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing pg url", func(c *Config) { c.Postgres.URL = "" }, "PG_URL"},
		{"zero lock timeout", func(c *Config) { c.Reservation.LockTimeout = 0 }, "LOCK_TIMEOUT"},
		{"zero user", func(c *Config) { c.Reservation.CurrentUserID = 0 }, "CURRENT_USER_ID"},
		{"negative price", func(c *Config) { c.Reservation.FallbackUnitPrice = decimal.NewFromInt(-1) }, "FALLBACK_UNIT_PRICE"},
		{"no brokers", func(c *Config) { c.Kafka.Brokers = nil }, "KAFKA_ADDR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
