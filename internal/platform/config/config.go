// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Cache        CacheConfig
	Seminar      SeminarConfig
	Export       ExportConfig
	Log          LogConfig
	FixturesPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. An empty URL disables the database.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings. An empty URL disables caching.
type CacheConfig struct {
	URL         string
	DocumentTTL time.Duration
}

// SeminarConfig holds settings for the seminar API that linked analyses are read from.
type SeminarConfig struct {
	APIURL  string
	Timeout time.Duration
}

// ExportConfig holds document export settings.
type ExportConfig struct {
	FontPath   string
	LegacyHWPX bool
	TempDir    string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with LEARN_ prefix. A .env file
// in the working directory is read first if present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LEARN_SERVER_PORT", 8080),
			Host: envStr("LEARN_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL:         envStr("LEARN_CACHE_URL", ""),
			DocumentTTL: envDuration("LEARN_CACHE_DOCUMENT_TTL", 5*time.Minute),
		},
		Seminar: SeminarConfig{
			APIURL:  envStr("LEARN_SEMINAR_API_URL", ""),
			Timeout: envDuration("LEARN_SEMINAR_TIMEOUT", 10*time.Second),
		},
		Export: ExportConfig{
			FontPath:   envStr("LEARN_EXPORT_FONT_PATH", ""),
			LegacyHWPX: envBool("LEARN_EXPORT_HWPX_LEGACY", false),
			TempDir:    envStr("LEARN_EXPORT_TEMP_DIR", ""),
		},
		Log: LogConfig{
			Level:  envStr("LEARN_LOG_LEVEL", "info"),
			Format: envStr("LEARN_LOG_FORMAT", "json"),
		},
		FixturesPath: envStr("LEARN_FIXTURES_PATH", ""),
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("LEARN_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if !c.HasCourseSource() {
		return fmt.Errorf("LEARN_DATABASE_URL or LEARN_FIXTURES_PATH is required")
	}

	if c.Database.URL != "" && c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("LEARN_DATABASE_MIN_CONNS (%d) exceeds LEARN_DATABASE_MAX_CONNS (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	if c.Cache.DocumentTTL <= 0 {
		return fmt.Errorf("LEARN_CACHE_DOCUMENT_TTL must be positive, got %s", c.Cache.DocumentTTL)
	}

	if c.Seminar.Timeout < 0 {
		return fmt.Errorf("LEARN_SEMINAR_TIMEOUT must not be negative, got %s", c.Seminar.Timeout)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LEARN_LOG_LEVEL must be debug, info, warn or error, got %q", c.Log.Level)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	return nil
}

// HasCourseSource returns true if courses can be read from somewhere.
func (c *Config) HasCourseSource() bool {
	return c.Database.URL != "" || c.FixturesPath != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

// envDuration accepts Go durations ("90s", "5m") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
