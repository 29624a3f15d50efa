// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration. It is loaded once at startup
// and passed explicitly to constructors; nothing reads the environment
// after Load returns.
type Config struct {
	// Server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Database settings.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	// Auth settings.
	AuthSecret string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel            string
	MaxRequestBodyBytes int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                envInt("PORT", 5000),
		ReadTimeout:         envDuration("YURAI_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:        envDuration("YURAI_WRITE_TIMEOUT", 30*time.Second),
		DBHost:              envStr("DB_HOST", "localhost"),
		DBPort:              envInt("DB_PORT", 5432),
		DBUser:              envStr("DB_USER", "postgres"),
		DBPassword:          envStr("DB_PASSWORD", "postgres"),
		DBName:              envStr("DB_NAME", "yurai"),
		AuthSecret:          envStr("AUTH_SECRET", "dev-secret"),
		OTELEndpoint:        envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:        envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:         envStr("OTEL_SERVICE_NAME", "yurai"),
		LogLevel:            envStr("LOG_LEVEL", "info"),
		MaxRequestBodyBytes: int64(envInt("YURAI_MAX_REQUEST_BODY_BYTES", 4*1024*1024)),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.AuthSecret == "" {
		return fmt.Errorf("config: AUTH_SECRET is required")
	}
	if c.DBHost == "" || c.DBName == "" {
		return fmt.Errorf("config: DB_HOST and DB_NAME are required")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: YURAI_MAX_REQUEST_BODY_BYTES must be positive")
	}
	return nil
}

// DatabaseURL assembles a postgres connection URL from the DB_* settings.
func (c Config) DatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:   c.DBName,
	}
	return u.String()
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
