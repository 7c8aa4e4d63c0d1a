// Package config loads and validates the service configuration from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the listen address of the HTTP server (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// DatabaseURL is the single connection string, e.g.
	// postgres://u:p@localhost:5432/members?sslmode=disable or sqlite3://members.db.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DatabaseDriver overrides the driver inferred from DatabaseURL ("pgx" selects jackc/pgx).
	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`

	DBMaxOpenConns       int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns       int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime    time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	DBQueryTimeout       time.Duration `mapstructure:"DB_QUERY_TIMEOUT"`
	DBSlowQueryThreshold time.Duration `mapstructure:"DB_SLOW_QUERY_THRESHOLD"`
	// DBLogArgs logs bound statement parameters. Development only.
	DBLogArgs bool `mapstructure:"DB_LOG_ARGS"`
	// DBConnectAttempts is how many times startup tries to reach the database.
	DBConnectAttempts int `mapstructure:"DB_CONNECT_ATTEMPTS"`

	// AutoMigrate creates the members table at startup when it is missing.
	AutoMigrate bool `mapstructure:"AUTO_MIGRATE"`

	// AuthUsername and AuthPassword are the single credential pair accepted
	// by the API. AuthPasswordHash, when set, is a bcrypt hash used instead
	// of AuthPassword.
	AuthUsername     string `mapstructure:"AUTH_USERNAME"`
	AuthPassword     string `mapstructure:"AUTH_PASSWORD"`
	AuthPasswordHash string `mapstructure:"AUTH_PASSWORD_HASH"`

	// LegacyStatusCodes answers validation, duplicate and unknown-id errors
	// with 200 and an error body, for clients of the previous service.
	LegacyStatusCodes bool `mapstructure:"LEGACY_STATUS_CODES"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// OTLPEndpoint enables trace export (e.g. localhost:4317). Empty disables it.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// ServiceName is the resource name used for traces and metrics.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Variables already set in the process win over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load() // missing .env is fine

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	// AutomaticEnv only answers Get for keys viper already knows about;
	// binding every key makes Unmarshal see variables without defaults.
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var keys = []string{
	"HTTP_ADDR", "SHUTDOWN_TIMEOUT",
	"DATABASE_URL", "DATABASE_DRIVER",
	"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME",
	"DB_QUERY_TIMEOUT", "DB_SLOW_QUERY_THRESHOLD", "DB_LOG_ARGS", "DB_CONNECT_ATTEMPTS",
	"AUTO_MIGRATE",
	"AUTH_USERNAME", "AUTH_PASSWORD", "AUTH_PASSWORD_HASH",
	"LEGACY_STATUS_CODES", "LOG_LEVEL",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("DATABASE_DRIVER", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	v.SetDefault("DB_QUERY_TIMEOUT", "10s")
	v.SetDefault("DB_SLOW_QUERY_THRESHOLD", "200ms")
	v.SetDefault("DB_LOG_ARGS", false)
	v.SetDefault("DB_CONNECT_ATTEMPTS", 5)
	v.SetDefault("AUTO_MIGRATE", true)
	v.SetDefault("LEGACY_STATUS_CODES", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OTEL_SERVICE_NAME", "member-directory")
}

// Validate enforces required fields and value ranges.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("config: DATABASE_URL must be set")
	}
	if c.AuthUsername == "" {
		return errors.New("config: AUTH_USERNAME must be set")
	}
	if c.AuthPassword == "" && c.AuthPasswordHash == "" {
		return errors.New("config: one of AUTH_PASSWORD or AUTH_PASSWORD_HASH must be set")
	}
	if c.DBConnectAttempts < 1 {
		return errors.New("config: DB_CONNECT_ATTEMPTS must be at least 1")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level; Validate guarantees it parses.
func (c *Config) SlogLevel() slog.Level {
	lvl, _ := ParseLogLevel(c.LogLevel)
	return lvl
}

// ParseLogLevel maps debug|info|warn|error onto slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown LOG_LEVEL %q", s)
	}
}
