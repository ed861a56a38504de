// Package config loads engine configuration from the environment.
// An optional .env file in the working directory is applied first, then
// real environment variables override it.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"linewatch/internal/domain"
)

// Config holds every tunable of the engine.
type Config struct {
	// Upstream feed
	FeedBaseURL string        `env:"FEED_BASE_URL"`
	FeedAPIKey  string        `env:"FEED_API_KEY"`
	FeedTimeout time.Duration `env:"FEED_TIMEOUT" envDefault:"10s"`

	// Tracking
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"60s"`
	TargetLine      float64       `env:"TARGET_LINE" envDefault:"2.5"`
	TargetOverrides string        `env:"TARGET_OVERRIDES"` // "39:2.5,140:3.25"
	MaxTracked      int           `env:"MAX_TRACKED" envDefault:"3200"`
	LineCacheTTL    time.Duration `env:"LINE_CACHE_TTL" envDefault:"30s"`

	// Storage
	PostgresDSN   string `env:"POSTGRES_DSN"`
	ClickhouseDSN string `env:"CLICKHOUSE_DSN"`
	UseMemory     bool   `env:"USE_MEMORY" envDefault:"false"`

	// Notifications
	TelegramToken  string        `env:"TELEGRAM_TOKEN"`
	TelegramChatID string        `env:"TELEGRAM_CHAT_ID"`
	NotifyRetries  int           `env:"NOTIFY_RETRIES" envDefault:"3"`
	NotifyDelay    time.Duration `env:"NOTIFY_RETRY_DELAY" envDefault:"5s"`
	NotifyPace     time.Duration `env:"NOTIFY_PACE" envDefault:"1s"`

	// HTTP
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
}

// Load reads the optional .env file and parses the environment.
func Load() (*Config, error) {
	LoadEnvFile(".env")

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the combinations a running engine needs.
func (c *Config) Validate() error {
	if c.FeedBaseURL == "" {
		return fmt.Errorf("FEED_BASE_URL is required")
	}
	if !c.UseMemory && c.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (or set USE_MEMORY=true)")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if c.TargetLine < 0 {
		return fmt.Errorf("TARGET_LINE must not be negative")
	}
	if _, err := domain.ParseTargetOverrides(c.TargetOverrides); err != nil {
		return fmt.Errorf("TARGET_OVERRIDES: %w", err)
	}
	return nil
}

// Targets builds the per-league target table from the parsed config.
func (c *Config) Targets() (*domain.TargetTable, error) {
	overrides, err := domain.ParseTargetOverrides(c.TargetOverrides)
	if err != nil {
		return nil, err
	}
	return domain.NewTargetTable(c.TargetLine, overrides), nil
}

// LoadEnvFile loads KEY=VALUE pairs from a file into the environment.
// Real environment variables win over file entries. A missing file is fine.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
}
