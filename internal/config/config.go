package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/llevateloexpress/financing-backend/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL   string
	RunMigrations bool

	// Auth0
	Auth0Domain   string
	Auth0Audience string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Calculator rate limiting (per client IP)
	CalculatorRateLimit int
	CalculatorBurst     int

	Kafka     KafkaConfig
	Outbox    OutboxConfig
	Financing domain.FinancingConfig
}

// KafkaConfig holds the status event stream settings. Kafka is disabled
// when Brokers is empty.
type KafkaConfig struct {
	Brokers     []string
	StatusTopic string
}

// Enabled reports whether any broker is configured
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// OutboxConfig holds the status relay settings
type OutboxConfig struct {
	RelayInterval time.Duration
	BatchSize     int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		Auth0Domain:   getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience: getEnv("AUTH0_AUDIENCE", ""),
		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		Env:           getEnv("ENV", "development"),
		Kafka: KafkaConfig{
			Brokers:     splitList(getEnv("KAFKA_BROKERS", "")),
			StatusTopic: getEnv("KAFKA_STATUS_TOPIC", "credit-application-status"),
		},
	}

	var err error
	if cfg.RunMigrations, err = getBool("RUN_MIGRATIONS", false); err != nil {
		return nil, err
	}
	if cfg.CalculatorRateLimit, err = getInt("CALCULATOR_RATE_LIMIT", 60); err != nil {
		return nil, err
	}
	if cfg.CalculatorBurst, err = getInt("CALCULATOR_BURST", 10); err != nil {
		return nil, err
	}
	if cfg.Outbox.RelayInterval, err = getDuration("OUTBOX_RELAY_INTERVAL", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.Outbox.BatchSize, err = getInt("OUTBOX_BATCH_SIZE", 100); err != nil {
		return nil, err
	}

	financing := domain.DefaultFinancingConfig()
	if financing.MaxTermMonths, err = getInt("FINANCING_MAX_TERM_MONTHS", domain.DefaultMaxTermMonths); err != nil {
		return nil, err
	}
	if financing.FirstDueOffsetMonths, err = getInt("FINANCING_FIRST_DUE_OFFSET_MONTHS", domain.DefaultFirstDueOffsetMonths); err != nil {
		return nil, err
	}
	if financing.SimulationListLimit, err = getInt("FINANCING_SIMULATION_LIST_LIMIT", domain.DefaultSimulationListLimit); err != nil {
		return nil, err
	}
	cfg.Financing = financing

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth0Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if c.Auth0Audience == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is required")
	}
	if c.CalculatorRateLimit <= 0 || c.CalculatorBurst <= 0 {
		return fmt.Errorf("CALCULATOR_RATE_LIMIT and CALCULATOR_BURST must be positive")
	}
	if c.Financing.MaxTermMonths <= 0 {
		return fmt.Errorf("FINANCING_MAX_TERM_MONTHS must be positive")
	}
	if c.Financing.FirstDueOffsetMonths < 0 {
		return fmt.Errorf("FINANCING_FIRST_DUE_OFFSET_MONTHS must not be negative")
	}
	if c.Financing.SimulationListLimit <= 0 || c.Financing.SimulationListLimit > domain.MaxSimulationListLimit {
		return fmt.Errorf("FINANCING_SIMULATION_LIST_LIMIT must be between 1 and %d", domain.MaxSimulationListLimit)
	}
	if c.Kafka.Enabled() && c.Kafka.StatusTopic == "" {
		return fmt.Errorf("KAFKA_STATUS_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return v, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return v, nil
}

// splitList splits a comma separated value, dropping empty entries
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
