package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/ssohandoff/internal/auth/domain"
	"github.com/aussiebroadwan/ssohandoff/internal/auth/service"
	"github.com/aussiebroadwan/ssohandoff/pkg/jwtx"
)

// Store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"

	SSOStoreDatabase = "database"
	SSOStoreRedis    = "redis"
)

type Config struct {
	Issuer         string // Optional: issuer claim for tokens (default: ssohandoff-auth)
	SigningKey     string // Optional: HMAC secret, at least 32 bytes
	SigningKeyFile string // Optional: file holding the HMAC secret, wins over SigningKey

	AccessTTL    time.Duration // Access token lifetime (default: 30m)
	SSOTTL       time.Duration // SSO token lifetime (default: 10m)
	SSORetention time.Duration // How long spent SSO tokens are kept (default: 24h)

	Store        string // sqlite or postgres (default: sqlite)
	DatabaseFile string // Path to SQLite database file (default: ./auth.db)
	DatabaseURL  string // Postgres DSN, required when Store is postgres
	SSOStore     string // database or redis (default: database)
	RedisURL     string // Required when SSOStore is redis
	PepperFile   string // Path to file containing pepper for password hashing (default: ./pepper)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "ssohandoff-auth"),
		SigningKey:     os.Getenv("AUTH_SIGNING_KEY"),
		SigningKeyFile: os.Getenv("AUTH_SIGNING_KEY_FILE"),

		AccessTTL:    getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		SSOTTL:       getEnvDurationOrDefault("AUTH_SSO_TTL", domain.DefaultSSOTokenTTL),
		SSORetention: getEnvDurationOrDefault("AUTH_SSO_RETENTION", service.DefaultSSORetention),

		Store:        strings.ToLower(getEnvOrDefault("AUTH_STORE", StoreSQLite)),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:  os.Getenv("AUTH_DATABASE_URL"),
		SSOStore:     strings.ToLower(getEnvOrDefault("AUTH_SSO_STORE", SSOStoreDatabase)),
		RedisURL:     os.Getenv("AUTH_REDIS_URL"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// Validate catches combinations that cannot start.
func (c Config) Validate() error {
	switch c.Store {
	case StoreSQLite:
		if c.DatabaseFile == "" {
			return fmt.Errorf("AUTH_DATABASE_FILE is required for the %s store", c.Store)
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("AUTH_DATABASE_URL is required for the %s store", c.Store)
		}
	default:
		return fmt.Errorf("unknown AUTH_STORE %q", c.Store)
	}

	switch c.SSOStore {
	case SSOStoreDatabase:
	case SSOStoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("AUTH_REDIS_URL is required for the %s sso store", c.SSOStore)
		}
	default:
		return fmt.Errorf("unknown AUTH_SSO_STORE %q", c.SSOStore)
	}

	if c.AccessTTL <= 0 || c.SSOTTL <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	return nil
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

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
