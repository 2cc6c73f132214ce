// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// LogFile, when set, is a strftime pattern for a rotated log file written
	// in addition to stdout, e.g. "/var/log/routetracker/api.%Y%m%d.log".
	LogFile string

	// LogMaxAge is how long rotated log files are kept. Defaults to 7 days.
	LogMaxAge time.Duration

	// LogRotation is the interval between log file rotations. Defaults to 24h.
	LogRotation time.Duration

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// StoreDriver selects the entity store backend: file, postgres or memory.
	// Defaults to "file".
	StoreDriver string

	// DataDir is where the file store keeps user.json and location.json.
	// Defaults to "./data".
	DataDir string

	// DatabaseURL is the Postgres connection string. Required when
	// StoreDriver is "postgres".
	DatabaseURL string

	// MigrateOnStart applies pending migrations at startup (postgres only).
	// Defaults to true.
	MigrateOnStart bool

	// RedisAddr is the host:port of the position cache. Empty disables it.
	RedisAddr string

	// PositionCacheTTL is the lifetime of a cached position. Defaults to 24h.
	PositionCacheTTL time.Duration

	// JWTSecret is the HS256 key used to verify bearer tokens. Required.
	JWTSecret string

	// SnowflakeNode is this replica's node number for location ids (0-31).
	// Defaults to 1.
	SnowflakeNode int64

	// MaxBodyBytes caps request body size. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// Load reads configuration from environment variables and returns a Config.
// A .env file in the working directory, if present, is loaded first; it
// never overrides variables already set in the environment.
// Returns an error listing any required variables that are not set and any
// values that do not parse.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config.Load: read .env: %w", err)
	}

	var p parser
	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          os.Getenv("LOG_FILE"),
		LogMaxAge:        p.duration("LOG_MAX_AGE", 7*24*time.Hour),
		LogRotation:      p.duration("LOG_ROTATION", 24*time.Hour),
		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", DriverFile)),
		DataDir:          getEnv("DATA_DIR", "./data"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		MigrateOnStart:   p.boolean("MIGRATE_ON_START", true),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		PositionCacheTTL: p.duration("POSITION_CACHE_TTL", 24*time.Hour),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		SnowflakeNode:    p.integer("SNOWFLAKE_NODE", 1),
		MaxBodyBytes:     p.integer("MAX_BODY_BYTES", 1<<20),
	}

	var missing []string
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case DriverFile, DriverMemory:
	default:
		p.invalid = append(p.invalid, "STORE_DRIVER")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(p.invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(p.invalid, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parser reads typed variables and collects the names of those that fail to
// parse, so every bad value is reported at once.
type parser struct {
	invalid []string
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return d
}

func (p *parser) boolean(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return b
}

func (p *parser) integer(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		p.invalid = append(p.invalid, key)
		return fallback
	}
	return n
}
