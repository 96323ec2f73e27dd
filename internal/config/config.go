// Package config loads configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all MiniDrive configuration.
type Config struct {
	// Storage
	BaseStoragePath string // one root directory per username lives under here
	MaxStorageBytes int64  // quota per storage root

	// Auth
	AuthBackend     string // "file" or "postgres"
	UsersFile       string
	DatabaseURL     string // required for the postgres backend
	JWTSecret       string
	SessionTTLHours int
	SessionFile     string // where the CLI persists its session token

	// Activity log
	ActivityLogFile string // suffix appended to each storage root path; the log lives beside the root, not inside it

	// Logging
	LogLevel  string
	LogFormat string

	// Metrics (empty = disabled)
	MetricsAddr string

	// Previews
	TextPreviewMaxBytes int64
	PreviewImageSize    int
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	home, _ := os.UserHomeDir()

	cfg := &Config{
		BaseStoragePath: envOr("BASE_STORAGE_PATH", "./storage"),
		MaxStorageBytes: envInt64("MAX_STORAGE_BYTES", 50*1024*1024),

		AuthBackend:     envOr("AUTH_BACKEND", "file"),
		UsersFile:       envOr("USERS_FILE", "users.txt"),
		DatabaseURL:     envOr("DATABASE_URL", ""),
		JWTSecret:       envOr("JWT_SECRET", ""),
		SessionTTLHours: envInt("SESSION_TTL_HOURS", 72),
		SessionFile:     envOr("SESSION_FILE", home+"/.minidrive/session"),

		ActivityLogFile: envOr("ACTIVITY_LOG_FILE", ".activity.log"),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "console"),

		MetricsAddr: envOr("METRICS_ADDR", ""),

		TextPreviewMaxBytes: envInt64("TEXT_PREVIEW_MAX_BYTES", 64*1024),
		PreviewImageSize:    envInt("PREVIEW_IMAGE_SIZE", 250),
	}

	switch cfg.AuthBackend {
	case "file":
		// nothing extra
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for AUTH_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("unknown AUTH_BACKEND %q", cfg.AuthBackend)
	}

	if cfg.MaxStorageBytes < 0 {
		return nil, fmt.Errorf("MAX_STORAGE_BYTES must not be negative")
	}

	return cfg, nil
}

// SessionTTL returns the configured session lifetime as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
