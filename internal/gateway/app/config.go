package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AuthServiceURL string // Base URL of the auth service's RPC surface
	JWTSecret      string // Required: shared HS256 secret, same as the auth service
	Issuer         string // Expected issuer claim on access tokens

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	AccessCookieTTL     time.Duration // access cookie Max-Age (default: 15m)
	RefreshCookieTTL    time.Duration // refresh cookie Max-Age (default: 30 days)
	MediatorTimeout     time.Duration // Per-call RPC timeout (default: 5s)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

// SecureCookies reports whether cookies should carry the Secure attribute.
// Only plain dev runs over http.
func (c Config) SecureCookies() bool {
	return c.Env != "dev"
}

func LoadConfig() Config {
	return Config{
		AuthServiceURL:      getEnvOrDefault("AUTH_SERVICE_URL", "http://localhost:8081"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		Issuer:              getEnvOrDefault("AUTH_ISSUER", "pulse-auth"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		AccessCookieTTL:     getEnvDurationOrDefault("ACCESS_COOKIE_TTL", 15*time.Minute),
		RefreshCookieTTL:    getEnvDurationOrDefault("REFRESH_COOKIE_TTL", 30*24*time.Hour),
		MediatorTimeout:     getEnvDurationOrDefault("MEDIATOR_TIMEOUT", 5*time.Second),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
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

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
