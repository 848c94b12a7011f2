package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/time/rate"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port string `env:"PORT" envDefault:"8080"`

	// Security
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:8080,http://localhost:3000"`
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	// Rate Limiting
	RateLimitAPI rate.Limit `env:"RATE_LIMIT_API" envDefault:"10"`
	RateLimitWS  rate.Limit `env:"RATE_LIMIT_WS" envDefault:"5"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"` // debug, info, warn, error, silent

	// WebSocket
	MaxMessageSize    int64         `env:"MAX_MESSAGE_SIZE" envDefault:"4096"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL" envDefault:"30s"`
	HandshakeTimeout  time.Duration `env:"HANDSHAKE_TIMEOUT" envDefault:"30s"`

	// Storage. Empty REDIS_ADDR selects the in-memory store.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Load parses configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
