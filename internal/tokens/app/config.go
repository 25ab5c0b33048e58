package app

import (
	"os"
	"strconv"
	"time"

	"github.com/calderasec/keyturn/pkg/lifespan"
)

type Config struct {
	Issuer         string // Issuer claim stamped into access tokens (default: keyturn)
	AdminTokenHash string // Optional: Argon2id hash of the operator API token; empty disables admin routes
	SigningKeyFile string // Optional: path to a PKCS8 Ed25519 PEM; empty means ephemeral per-process key

	AccessTokenTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTokenTTL string        // Refresh token lifetime, raw ("7d", "24h", bare day count; default: 7d)

	DatabaseFile         string        // Path to SQLite database file (default: ./keyturn.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Retention sweep interval (default: 1h)
	RetentionPeriod      time.Duration // How long expired rows and audit entries are kept (default: 30 days)
}

func LoadConfig() Config {
	return Config{
		Issuer:         getEnvOrDefault("KEYTURN_ISSUER", "keyturn"),
		AdminTokenHash: os.Getenv("KEYTURN_ADMIN_TOKEN_HASH"),
		SigningKeyFile: os.Getenv("KEYTURN_SIGNING_KEY_FILE"),

		AccessTokenTTL:  getEnvDurationOrDefault("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvOrDefault("REFRESH_TOKEN_TTL", "7d"),

		DatabaseFile:         getEnvOrDefault("KEYTURN_DATABASE_FILE", "keyturn.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		RetentionPeriod:      getEnvDurationOrDefault("RETENTION_PERIOD", 30*24*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Accept Go durations ("1h", "30m") and day-suffixed or bare-day values
	// ("7d", "7"), same vocabulary the refresh lifetime uses.
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	if duration := lifespan.TTL(value); duration > 0 {
		return duration
	}

	return defaultValue
}
