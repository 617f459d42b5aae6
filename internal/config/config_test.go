package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/financing")
	t.Setenv("AUTH0_DOMAIN", "llevateloexpress.us.auth0.com")
	t.Setenv("AUTH0_AUDIENCE", "https://api.llevateloexpress.com")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, 60, cfg.CalculatorRateLimit)
	assert.Equal(t, 10, cfg.CalculatorBurst)
	assert.Equal(t, 2*time.Second, cfg.Outbox.RelayInterval)
	assert.Equal(t, 100, cfg.Outbox.BatchSize)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, 120, cfg.Financing.MaxTermMonths)
	assert.Equal(t, 0, cfg.Financing.FirstDueOffsetMonths)
	assert.Equal(t, 5, cfg.Financing.SimulationListLimit)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "https://llevateloexpress.com, https://admin.llevateloexpress.com,")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("KAFKA_STATUS_TOPIC", "status-events")
	t.Setenv("OUTBOX_RELAY_INTERVAL", "500ms")
	t.Setenv("RUN_MIGRATIONS", "true")
	t.Setenv("FINANCING_MAX_TERM_MONTHS", "72")
	t.Setenv("FINANCING_FIRST_DUE_OFFSET_MONTHS", "1")
	t.Setenv("ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://llevateloexpress.com", "https://admin.llevateloexpress.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "status-events", cfg.Kafka.StatusTopic)
	assert.Equal(t, 500*time.Millisecond, cfg.Outbox.RelayInterval)
	assert.True(t, cfg.RunMigrations)
	assert.Equal(t, 72, cfg.Financing.MaxTermMonths)
	assert.Equal(t, 1, cfg.Financing.FirstDueOffsetMonths)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing database", "DATABASE_URL", ""},
		{"missing audience", "AUTH0_AUDIENCE", ""},
		{"non numeric limit", "CALCULATOR_RATE_LIMIT", "many"},
		{"zero burst", "CALCULATOR_BURST", "0"},
		{"bad interval", "OUTBOX_RELAY_INTERVAL", "soon"},
		{"negative offset", "FINANCING_FIRST_DUE_OFFSET_MONTHS", "-1"},
		{"list limit above max", "FINANCING_SIMULATION_LIST_LIMIT", "500"},
		{"bad bool", "RUN_MIGRATIONS", "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
