// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/msomdec/shift-clock/internal/repository/sqlstore"
)

// Config holds the server settings.
type Config struct {
	Port           string
	DatabaseDriver string
	DatabasePath   string
	MySQLDSN       string
	JWTSecret      string
	CookieSecure   bool
	BcryptCost     int
	AppOrigin      string
	AppEnv         string
	LogLevel       slog.Level
	TZCacheSize    int
}

// Load reads the configuration from environment variables and validates it.
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	envOrDefault := func(key, defaultVal string) string {
		if val := getenv(key); val != "" {
			return val
		}
		return defaultVal
	}

	cfg := &Config{
		Port:           envOrDefault("PORT", "8080"),
		DatabaseDriver: envOrDefault("DATABASE_DRIVER", sqlstore.DialectSQLite),
		DatabasePath:   envOrDefault("DATABASE_PATH", "shift-clock.db"),
		MySQLDSN:       getenv("MYSQL_DSN"),
		JWTSecret:      getenv("JWT_SECRET"),
		// Default to secure cookies; disable only for local development.
		CookieSecure: getenv("COOKIE_SECURE") != "false",
		BcryptCost:   12,
		AppOrigin:    envOrDefault("APP_ORIGIN", "http://localhost:5173"),
		AppEnv:       envOrDefault("APP_ENV", "development"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}

	switch cfg.DatabaseDriver {
	case sqlstore.DialectSQLite:
	case sqlstore.DialectMySQL:
		if cfg.MySQLDSN == "" {
			return nil, errors.New("MYSQL_DSN is required when DATABASE_DRIVER is mysql")
		}
	default:
		return nil, fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", sqlstore.DialectSQLite, sqlstore.DialectMySQL, cfg.DatabaseDriver)
	}

	if v := getenv("BCRYPT_COST"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
		}
		if parsed < 4 || parsed > 14 {
			return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", parsed)
		}
		cfg.BcryptCost = parsed
	}

	if v := getenv("TZ_CACHE_SIZE"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid TZ_CACHE_SIZE %q", v)
		}
		cfg.TZCacheSize = parsed
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(envOrDefault("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg.AppOrigin = strings.TrimRight(cfg.AppOrigin, "/")
	return cfg, nil
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
