package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Client    ClientConfig
	Capture   CaptureConfig
	Artifact  ArtifactConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8000
	Mode string // "debug", "release", "test"; default: "release"
}

// ClientConfig controls the orchestrator's connection to the backend.
type ClientConfig struct {
	// BaseURL is the backend root including the /api prefix.
	BaseURL string // default: "http://localhost:8000/api"

	// Timeout is the hard ceiling on one batch submission.
	Timeout time.Duration // default: 300s

	// DownloadDir is where retrieved artifacts are saved.
	DownloadDir string // default: "."

	// APIKey is sent with every request when the backend requires one.
	APIKey string
}

// CaptureConfig controls the capture fan-out.
type CaptureConfig struct {
	// Engine selects the capture implementation ("fixture" for the
	// built-in stand-in).
	Engine string // default: "fixture"

	// MaxConcurrent is the number of captures run in parallel per request.
	MaxConcurrent int // default: 4

	// Timeout is the per-URL capture deadline.
	Timeout time.Duration // default: 30s

	// CacheEntries caps the capture cache; 0 disables caching.
	CacheEntries int // default: 256

	// CacheTTL is how long a cached capture stays fresh.
	CacheTTL time.Duration // default: 15m
}

// ArtifactConfig controls artifact storage on the server.
type ArtifactConfig struct {
	// Dir is the directory produced artifacts are written to.
	Dir string // default: "/tmp/speedtest_results"

	// TTL is how long an artifact stays downloadable.
	TTL time.Duration // default: 24h

	// SweepInterval is how often expired artifacts are removed.
	SweepInterval time.Duration // default: 1h
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per client.
	Burst int // default: 10
}

// WebhookConfig controls batch completion notifications.
type WebhookConfig struct {
	// URL receives an event per processed batch; empty disables delivery.
	URL string

	// Secret signs event bodies with HMAC-SHA256 when non-empty.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("SPEEDSHEET_HOST", "0.0.0.0"),
			Port: envIntOr("SPEEDSHEET_PORT", 8000),
			Mode: envOr("SPEEDSHEET_MODE", "release"),
		},
		Client: ClientConfig{
			BaseURL:     envOr("SPEEDSHEET_BACKEND_URL", "http://localhost:8000/api"),
			Timeout:     envDurationOr("SPEEDSHEET_SUBMIT_TIMEOUT", 300*time.Second),
			DownloadDir: envOr("SPEEDSHEET_DOWNLOAD_DIR", "."),
			APIKey:      envOr("SPEEDSHEET_API_KEY", ""),
		},
		Capture: CaptureConfig{
			Engine:        envOr("SPEEDSHEET_CAPTURE_ENGINE", "fixture"),
			MaxConcurrent: envIntOr("SPEEDSHEET_CAPTURE_CONCURRENCY", 4),
			Timeout:       envDurationOr("SPEEDSHEET_CAPTURE_TIMEOUT", 30*time.Second),
			CacheEntries:  envIntOr("SPEEDSHEET_CAPTURE_CACHE_ENTRIES", 256),
			CacheTTL:      envDurationOr("SPEEDSHEET_CAPTURE_CACHE_TTL", 15*time.Minute),
		},
		Artifact: ArtifactConfig{
			Dir:           envOr("SPEEDSHEET_ARTIFACT_DIR", "/tmp/speedtest_results"),
			TTL:           envDurationOr("SPEEDSHEET_ARTIFACT_TTL", 24*time.Hour),
			SweepInterval: envDurationOr("SPEEDSHEET_SWEEP_INTERVAL", time.Hour),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SPEEDSHEET_AUTH_ENABLED", false),
			APIKeys: envSliceOr("SPEEDSHEET_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SPEEDSHEET_RATE_RPS", 5.0),
			Burst:             envIntOr("SPEEDSHEET_RATE_BURST", 10),
		},
		Webhook: WebhookConfig{
			URL:    envOr("SPEEDSHEET_WEBHOOK_URL", ""),
			Secret: envOr("SPEEDSHEET_WEBHOOK_SECRET", ""),
		},
		Log: LogConfig{
			Level:  envOr("SPEEDSHEET_LOG_LEVEL", "info"),
			Format: envOr("SPEEDSHEET_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
