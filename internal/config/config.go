// Package config provides configuration for the application
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	CORS      CORSConfig
	API       APIConfig
	Session   SessionConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port    int
	SiteURL string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// APIConfig holds settings of the remote auth and booking API
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SessionConfig holds browsing session settings
type SessionConfig struct {
	CookieName    string
	CookieSecure  bool
	IdleTimeout   time.Duration
	TTL           time.Duration
	SettleTimeout time.Duration
}

// RedisConfig holds Redis connection settings.
// An empty URL keeps sessions in process memory.
type RedisConfig struct {
	URL string
}

// TelemetryConfig holds OpenTelemetry settings
type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
}

// RateLimitConfig holds per-IP rate limit settings
type RateLimitConfig struct {
	RequestsPerMinute int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{}

	// Server configuration
	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = serverPort
	cfg.Server.SiteURL = strings.TrimRight(stringEnv("SITE_URL", fmt.Sprintf("http://localhost:%d", serverPort)), "/")

	// Logging configuration
	cfg.Logging.Level = stringEnv("LOG_LEVEL", "info")

	// CORS configuration
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// Remote API configuration
	apiBaseURL := strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if apiBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}
	if _, err := url.ParseRequestURI(apiBaseURL); err != nil {
		return nil, fmt.Errorf("invalid API_BASE_URL: %w", err)
	}
	cfg.API.BaseURL = apiBaseURL

	if cfg.API.Timeout, err = durationEnv("API_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	// Session configuration
	cfg.Session.CookieName = stringEnv("SESSION_COOKIE_NAME", "tutorhub_sid")
	if cfg.Session.CookieSecure, err = boolEnv("SESSION_COOKIE_SECURE", false); err != nil {
		return nil, err
	}
	if cfg.Session.IdleTimeout, err = durationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Session.TTL, err = durationEnv("SESSION_TTL", 168*time.Hour); err != nil {
		return nil, err
	}
	if cfg.Session.SettleTimeout, err = durationEnv("GUARD_SETTLE_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}

	// Redis configuration (optional)
	cfg.Redis.URL = os.Getenv("REDIS_URL")

	// Telemetry configuration
	if cfg.Telemetry.Enabled, err = boolEnv("OTEL_ENABLED", false); err != nil {
		return nil, err
	}
	cfg.Telemetry.Endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if cfg.Telemetry.Insecure, err = boolEnv("OTEL_EXPORTER_OTLP_INSECURE", false); err != nil {
		return nil, err
	}
	cfg.Telemetry.ServiceName = stringEnv("OTEL_SERVICE_NAME", "tutorhub-web")

	// Rate limit configuration
	if cfg.RateLimit.RequestsPerMinute, err = intEnv("RATE_LIMIT_PER_MINUTE", 100); err != nil {
		return nil, err
	}

	return cfg, nil
}

func stringEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

// parseOrigins splits a comma-separated origin list.
// An empty list means same-origin only.
func parseOrigins(raw string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
