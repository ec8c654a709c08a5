package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the chat hand-off service.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"naf-chat-server"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"CHAT_SERVER_PORT" envDefault:"8190"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"console"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// OpenTelemetry
	EnableTracing bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`

	// Auth - validated against the platform-issued JWT when enabled
	AuthEnabled  bool   `env:"AUTH_ENABLED" envDefault:"false"`
	AuthSecret   string `env:"AUTH_JWT_SECRET"`
	AuthIssuer   string `env:"AUTH_ISSUER" envDefault:"naf-platform"`
	AuthAudience string `env:"AUTH_AUDIENCE" envDefault:"naf-chat-server"`

	// Persistence. Conversations live in memory unless a DSN is set.
	DatabaseURL    string        `env:"CHAT_DATABASE_URL" envDefault:""`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	DBLogLevel     string        `env:"DB_LOG_LEVEL" envDefault:"warn"`
	DBAutoMigrate  bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`

	// Coordinator presence. Redis-backed when a URL is set.
	RedisURL    string        `env:"REDIS_URL" envDefault:""`
	PresenceTTL time.Duration `env:"PRESENCE_TTL" envDefault:"45s"`

	// Audit trail over AMQP. Disabled when the URL is empty.
	AMQPURL string `env:"AMQP_URL" envDefault:""`

	// Notification stream
	SSEKeepAliveInterval time.Duration `env:"SSE_KEEPALIVE_INTERVAL" envDefault:"25s"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	// Validate auth configuration
	if cfg.AuthEnabled {
		if strings.TrimSpace(cfg.AuthSecret) == "" {
			return nil, fmt.Errorf("AUTH_JWT_SECRET is required when AUTH_ENABLED is true")
		}
	}

	if cfg.PresenceTTL <= 0 {
		return nil, fmt.Errorf("PRESENCE_TTL must be positive")
	}

	return cfg, nil
}

// Addr returns the HTTP server address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
