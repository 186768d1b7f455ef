package resource

import (
	"os"
	"strconv"
	"time"
)

// Config is the resource server's environment. It shares the issuer and
// signing key with the gateway and nothing else.
type Config struct {
	Issuer         string
	SigningKey     string
	SigningKeyFile string

	Env                 string
	LogLevel            string
	LogFormat           string
	Port                int
	ShutdownGracePeriod time.Duration
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:              os.Getenv("AUTH_ISSUER"),
		SigningKey:          os.Getenv("AUTH_SIGNING_KEY"),
		SigningKeyFile:      os.Getenv("AUTH_SIGNING_KEY_FILE"),
		Env:                 os.Getenv("ENV"),
		LogLevel:            os.Getenv("LOG_LEVEL"),
		LogFormat:           os.Getenv("LOG_FORMAT"),
		Port:                8081,
		ShutdownGracePeriod: 10 * time.Second,
	}

	if cfg.Issuer == "" {
		cfg.Issuer = "ssohandoff-auth"
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "json"
	}
	if p, err := strconv.Atoi(os.Getenv("RESOURCE_PORT")); err == nil && p > 0 {
		cfg.Port = p
	}
	if d, err := time.ParseDuration(os.Getenv("SHUTDOWN_GRACE_PERIOD")); err == nil {
		cfg.ShutdownGracePeriod = d
	}
	return cfg
}
