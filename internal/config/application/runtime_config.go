package application

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultCORSOrigins = "http://localhost:3000,http://localhost:5173,http://127.0.0.1:3000,http://127.0.0.1:5173"

// RuntimeConfig holds all runtime configuration from CLI flags, environment variables, and .env file
type RuntimeConfig struct {
	// Prometheus backend
	PrometheusURL     string
	PrometheusTimeout time.Duration
	BreakerEnabled    bool

	// HTTP surface
	APIPort        string
	CORSOrigins    []string
	StaticFilesDir string
	DocsEnabled    bool

	// Development Mode
	DevMode bool

	// Logging Configuration
	LogLevel  string
	LogFormat string
	LogOutput string
}

// Flags carries raw CLI flag values. Empty strings and zero values mean the
// flag was not given.
type Flags struct {
	PrometheusURL     string
	PrometheusTimeout int
	CORSOrigins       string
	StaticFilesDir    string
	Port              string
	LogLevel          string
	LogFormat         string
	LogOutput         string
	DevMode           bool
	Breaker           bool
}

// LoadRuntimeConfig loads configuration with precedence: CLI flags > env vars > .env file > defaults
func LoadRuntimeConfig(flags Flags) *RuntimeConfig {
	timeout := flags.PrometheusTimeout
	if timeout <= 0 {
		timeout = getInt("PROMETHEUS_TIMEOUT", 30)
	}

	devMode := flags.DevMode || getBoolEnv("POLYSTAT_DEV_MODE", false)

	cfg := &RuntimeConfig{
		PrometheusURL:     getValue(flags.PrometheusURL, "PROMETHEUS_URL", "http://localhost:9090"),
		PrometheusTimeout: time.Duration(timeout) * time.Second,
		BreakerEnabled:    flags.Breaker || getBoolEnv("POLYSTAT_BREAKER", false),
		APIPort:           getValue(flags.Port, "POLYSTAT_API_PORT", "8000"),
		CORSOrigins:       ParseOrigins(getValue(flags.CORSOrigins, "CORS_ORIGINS", defaultCORSOrigins)),
		StaticFilesDir:    getValue(flags.StaticFilesDir, "STATIC_FILES_DIR", "/app/static"),
		DocsEnabled:       devMode || getBoolEnv("POLYSTAT_DOCS", true),
		DevMode:           devMode,
		LogLevel:          getValue(flags.LogLevel, "POLYSTAT_LOG_LEVEL", "INFO"),
		LogFormat:         getValue(flags.LogFormat, "POLYSTAT_LOG_FORMAT", "text"),
		LogOutput:         getValue(flags.LogOutput, "POLYSTAT_LOG_OUTPUT", "stdout"),
	}

	return cfg
}

// ParseOrigins splits a comma-separated origin list, trimming blanks.
func ParseOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// getValue returns the first non-empty value from CLI flag, env var, or default
func getValue(cliValue, envKey, defaultValue string) string {
	if cliValue != "" {
		return cliValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getInt reads a positive integer env var; anything else yields the default
func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

// getBoolEnv gets a boolean environment variable
func getBoolEnv(key string, defaultValue bool) bool {
	value := strings.ToLower(os.Getenv(key))
	if value == "true" || value == "1" || value == "yes" {
		return true
	}
	if value == "false" || value == "0" || value == "no" {
		return false
	}
	return defaultValue
}

// Validate checks that required configuration is present
func (c *RuntimeConfig) Validate() error {
	u, err := url.Parse(c.PrometheusURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ConfigError{Field: "prometheus-url", Message: fmt.Sprintf("Prometheus URL must be an absolute http(s) URL, got %q", c.PrometheusURL)}
	}
	if c.PrometheusTimeout <= 0 {
		return &ConfigError{Field: "prometheus-timeout", Message: "Prometheus timeout must be positive"}
	}
	if c.APIPort == "" {
		return &ConfigError{Field: "port", Message: "API port is required (set POLYSTAT_API_PORT or use --port flag)"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
