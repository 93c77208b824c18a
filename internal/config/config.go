package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the process settings read from the environment.
type Config struct {
	Addr       string        `env:"TASKD_ADDR"        envDefault:":8080"`
	DBPath     string        `env:"TASKD_DB_PATH"     envDefault:"data/taskd.db"`
	TokenTTL   time.Duration `env:"TASKD_TOKEN_TTL"   envDefault:"24h"`
	BcryptCost int           `env:"TASKD_BCRYPT_COST" envDefault:"12"`
	LogLevel   string        `env:"TASKD_LOG_LEVEL"   envDefault:"info"`
}

// Load parses Config from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("token ttl must be positive, got %s", cfg.TokenTTL)
	}
	return cfg, nil
}

// SlogLevel converts LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
