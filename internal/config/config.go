// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Classifier ClassifierConfig
	Upload     UploadConfig
	Session    SessionConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout must exceed RequestTimeout; 0 disables it (default: 110s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"110s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests. It must outlast a
	// slot wait plus one classifier call (default: 100s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"100s"`
}

// ClassifierConfig holds settings for the remote classification service.
type ClassifierConfig struct {
	// URL is the base URL of the classification service.
	// Supports both CLASSIFIER_URL and API_URL env vars for compatibility.
	URL string `env:"CLASSIFIER_URL" envAlt:"API_URL" default:"http://localhost:5000"`

	// Timeout bounds a single classification request (default: 60s)
	Timeout time.Duration `env:"CLASSIFIER_TIMEOUT" default:"60s"`

	// MaxConcurrent is the maximum number of in-flight classification calls (default: 4)
	MaxConcurrent int `env:"CLASSIFIER_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a submission waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"CLASSIFIER_MAX_WAIT_TIME" default:"30s"`

	// BreakerEnabled wraps the classifier in a circuit breaker (default: true)
	BreakerEnabled bool `env:"CLASSIFIER_BREAKER_ENABLED" default:"true"`

	// BreakerFailures is the consecutive failure count that opens the breaker (default: 5)
	BreakerFailures int `env:"CLASSIFIER_BREAKER_FAILURES" default:"5"`

	// BreakerTimeout is how long the breaker stays open (default: 30s)
	BreakerTimeout time.Duration `env:"CLASSIFIER_BREAKER_TIMEOUT" default:"30s"`
}

// UploadConfig holds image upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted image size; accepts 16MB, 512KiB or bytes (default: 16MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"16MB" unit:"bytes"`
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	// MaxSessions caps the number of live sessions (default: 1000)
	MaxSessions int `env:"SESSION_MAX" default:"1000"`

	// IdleTTL evicts sessions (and their previews) after inactivity (default: 30m)
	IdleTTL time.Duration `env:"SESSION_IDLE_TTL" default:"30m"`

	// CookieName is the session cookie name (default: raredx_session)
	CookieName string `env:"SESSION_COOKIE" default:"raredx_session"`

	// SecureCookie marks the session cookie Secure (default: false)
	SecureCookie bool `env:"SESSION_SECURE_COOKIE" default:"false"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// SubmitLimit is requests per minute for the submit endpoint (default: 10)
	SubmitLimit int `env:"RATE_LIMIT_SUBMIT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
