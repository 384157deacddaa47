// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings.
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Archive settings.
	ArchiveDir       string
	ArchiveCacheSize int // parsed-file LRU cache entries

	// History settings.
	HistoryDedup bool // collapse memory+file summaries for the same conversation
	EvictLimit   int  // completed conversations kept in memory after archival; 0 keeps all

	// Responder settings.
	ResponderBackend     string // "rules" or "openai"
	ResponderRulesPath   string // optional YAML rule file; empty uses built-in rules
	ResponderTimeout     time.Duration
	ResponderLoadTimeout time.Duration
	OpenAIAPIKey         string
	OpenAIModel          string

	// Collector settings.
	CollectorURLs    []string
	CollectorOutPath string

	// Rate limit settings.
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	// HTTP settings.
	CORSAllowedOrigins  []string
	MaxRequestBodyBytes int64

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:                 envInt("TAIWA_PORT", 8080),
		ReadTimeout:          envDuration("TAIWA_READ_TIMEOUT", 30*time.Second),
		WriteTimeout:         envDuration("TAIWA_WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout:      envDuration("TAIWA_SHUTDOWN_TIMEOUT", 10*time.Second),
		ArchiveDir:           envStr("TAIWA_ARCHIVE_DIR", "data/conversas"),
		ArchiveCacheSize:     envInt("TAIWA_ARCHIVE_CACHE_SIZE", 256),
		HistoryDedup:         envBool("TAIWA_HISTORY_DEDUP", true),
		EvictLimit:           envInt("TAIWA_EVICT_LIMIT", 0),
		ResponderBackend:     envStr("TAIWA_RESPONDER_BACKEND", "rules"),
		ResponderRulesPath:   envStr("TAIWA_RESPONDER_RULES", ""),
		ResponderTimeout:     envDuration("TAIWA_RESPONDER_TIMEOUT", 10*time.Second),
		ResponderLoadTimeout: envDuration("TAIWA_RESPONDER_LOAD_TIMEOUT", 30*time.Second),
		OpenAIAPIKey:         envStr("OPENAI_API_KEY", ""),
		OpenAIModel:          envStr("TAIWA_OPENAI_MODEL", "gpt-4o-mini"),
		CollectorURLs:        envList("TAIWA_COLLECTOR_URLS"),
		CollectorOutPath:     envStr("TAIWA_COLLECTOR_OUT", "data/coleta/samples.jsonl"),
		RateLimitEnabled:     envBool("TAIWA_RATE_LIMIT_ENABLED", true),
		RateLimitRPS:         envFloat("TAIWA_RATE_LIMIT_RPS", 10),
		RateLimitBurst:       envInt("TAIWA_RATE_LIMIT_BURST", 30),
		CORSAllowedOrigins:   envList("TAIWA_CORS_ALLOWED_ORIGINS"),
		MaxRequestBodyBytes:  int64(envInt("TAIWA_MAX_REQUEST_BODY_BYTES", 1*1024*1024)), // 1 MB default
		OTELEndpoint:         envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:         envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:          envStr("OTEL_SERVICE_NAME", "taiwa"),
		LogLevel:             envStr("TAIWA_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and coherent.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: TAIWA_PORT must be in 1..65535")
	}
	if c.ArchiveDir == "" {
		return fmt.Errorf("config: TAIWA_ARCHIVE_DIR is required")
	}
	if c.ArchiveCacheSize <= 0 {
		return fmt.Errorf("config: TAIWA_ARCHIVE_CACHE_SIZE must be positive")
	}
	if c.MaxRequestBodyBytes <= 0 {
		return fmt.Errorf("config: TAIWA_MAX_REQUEST_BODY_BYTES must be positive")
	}
	switch c.ResponderBackend {
	case "rules", "openai":
	default:
		return fmt.Errorf("config: TAIWA_RESPONDER_BACKEND must be \"rules\" or \"openai\" (got %q)", c.ResponderBackend)
	}
	if c.ResponderBackend == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("config: OPENAI_API_KEY is required when TAIWA_RESPONDER_BACKEND=openai")
	}
	if c.RateLimitEnabled && (c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0) {
		return fmt.Errorf("config: rate limit rps and burst must be positive when enabled")
	}
	if c.EvictLimit < 0 {
		return fmt.Errorf("config: TAIWA_EVICT_LIMIT must not be negative")
	}
	return nil
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

func envFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
