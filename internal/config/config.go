package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Remote clinic backend
	BackendBaseURL string
	BackendToken   string

	// Session / capabilities
	SessionJWTSecret string
	SessionToken     string

	// Orchestrator
	ReadinessTimeout time.Duration
	RetryBackoff     time.Duration

	// Snapshot cache
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	CacheTTL      time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		BackendBaseURL:   getEnv("BACKEND_BASE_URL", ""),
		BackendToken:     getEnv("BACKEND_TOKEN", ""),
		SessionJWTSecret: getEnv("SESSION_JWT_SECRET", ""),
		SessionToken:     getEnv("SESSION_TOKEN", ""),
		ReadinessTimeout: getEnvAsDuration("READINESS_TIMEOUT", 10*time.Second),
		RetryBackoff:     getEnvAsDuration("RETRY_BACKOFF", 500*time.Millisecond),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),
		CacheTTL:         getEnvAsDuration("CACHE_TTL", 2*time.Minute),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
