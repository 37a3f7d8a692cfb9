package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Storage drivers
const (
	DriverClickHouse = "clickhouse"
	DriverSQLite     = "sqlite"
	DriverMock       = "mock"
)

// Config holds the application configuration
type Config struct {
	// HTTP server
	Port string `env:"PORT" envDefault:"8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json or console

	// Telegram bot; an empty token disables the bot
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`

	// Bot mode configuration
	WebhookMode bool   `env:"WEBHOOK_MODE"` // If true, use webhook mode; if false, use polling mode
	WebhookURL  string `env:"WEBHOOK_URL"`  // URL for webhook (required if WebhookMode is true)

	// Storage
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"clickhouse"`
	UseMockDB     bool   `env:"USE_MOCK_DB"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"readingtracker.db"`

	// ClickHouse configuration
	ClickHouseHost     string `env:"CLICKHOUSE_HOST"`
	ClickHousePort     int    `env:"CLICKHOUSE_PORT" envDefault:"9000"`
	ClickHouseDatabase string `env:"CLICKHOUSE_DATABASE" envDefault:"default"`
	ClickHouseUser     string `env:"CLICKHOUSE_USER" envDefault:"default"`
	ClickHousePassword string `env:"CLICKHOUSE_PASSWORD"`
	ClickHouseUseTLS   bool   `env:"CLICKHOUSE_USE_TLS"`

	// Status reconciliation cron spec; empty disables the job
	ReconcileSchedule string `env:"RECONCILE_SCHEDULE" envDefault:"@every 6h"`

	// Optional YAML file merged over the built-in category profiles
	CategoryProfilesPath string `env:"CATEGORY_PROFILES_PATH"`
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	config := &Config{}
	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// USE_MOCK_DB wins over STORAGE_DRIVER
	if config.UseMockDB {
		config.StorageDriver = DriverMock
	}
	config.StorageDriver = strings.ToLower(strings.TrimSpace(config.StorageDriver))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the rules that span several variables
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverClickHouse:
		if c.ClickHouseHost == "" {
			return fmt.Errorf("CLICKHOUSE_HOST is required when STORAGE_DRIVER is %s", DriverClickHouse)
		}
		if c.ClickHousePort <= 0 {
			return fmt.Errorf("invalid CLICKHOUSE_PORT: %d", c.ClickHousePort)
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORAGE_DRIVER is %s", DriverSQLite)
		}
	case DriverMock:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (expected %s, %s or %s)",
			c.StorageDriver, DriverClickHouse, DriverSQLite, DriverMock)
	}

	if c.WebhookMode && c.TelegramToken != "" && c.WebhookURL == "" {
		return fmt.Errorf("WEBHOOK_URL is required when WEBHOOK_MODE is true")
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q (expected json or console)", c.LogFormat)
	}
	return nil
}

// BotEnabled reports whether a Telegram token was configured
func (c *Config) BotEnabled() bool {
	return c.TelegramToken != ""
}
