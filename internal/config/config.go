// Package config provides centralized configuration management for the
// server and the CLI. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Pipeline PipelineConfig
	Run      RunConfig
	Output   OutputConfig
	History  HistoryConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 60s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, runs stream their output)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 15m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"15m"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty disables the Postgres
	// sink and keeps run history in memory.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool { return c.URL != "" }

// PipelineConfig selects the mapping tables, dataset and run options.
type PipelineConfig struct {
	// MappingsDir holds the code table, column names and vocabularies (default: mappings)
	MappingsDir string `env:"PIPELINE_MAPPINGS_DIR" default:"mappings"`

	// Definition is an optional YAML file overlaid on the built-in column contract
	Definition string `env:"PIPELINE_DEFINITION"`

	// Dataset is the dataset the CLI converts (default: bbr_buildings)
	Dataset string `env:"PIPELINE_DATASET" default:"bbr_buildings"`

	// AreaFilter overrides the dataset's area threshold; negative keeps the default
	AreaFilter float64 `env:"PIPELINE_AREA_FILTER" default:"-1"`

	// Demolished overrides the dataset's demolished flag: "", "true" or "false"
	Demolished string `env:"PIPELINE_DEMOLISHED"`

	// SourceCRS is the CRS of the raw coordinates (default: EPSG:25832)
	SourceCRS string `env:"PIPELINE_SOURCE_CRS" default:"EPSG:25832"`

	// TargetCRS is the CRS of the output coordinates (default: EPSG:4326)
	TargetCRS string `env:"PIPELINE_TARGET_CRS" default:"EPSG:4326"`
}

// AreaFilterOverride returns the configured area threshold, or nil when the
// dataset default applies.
func (c *PipelineConfig) AreaFilterOverride() *float64 {
	if c.AreaFilter < 0 {
		return nil
	}
	v := c.AreaFilter
	return &v
}

// DemolishedOverride returns the configured demolished flag, or nil when the
// dataset default applies. Validate rejects values ParseBool cannot read.
func (c *PipelineConfig) DemolishedOverride() *bool {
	if c.Demolished == "" {
		return nil
	}
	b, err := strconv.ParseBool(c.Demolished)
	if err != nil {
		return nil
	}
	return &b
}

// RunConfig holds pipeline run settings.
type RunConfig struct {
	// MaxFileSize is the maximum raw extract size in bytes (default: 512MB)
	MaxFileSize int64 `env:"RUN_MAX_FILE_SIZE" default:"536870912"`

	// MaxConcurrent is the maximum number of parallel runs (default: 2)
	MaxConcurrent int `env:"RUN_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s)
	MaxWaitTime time.Duration `env:"RUN_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single run (default: 10m)
	Timeout time.Duration `env:"RUN_TIMEOUT" default:"10m"`
}

// OutputConfig holds sink settings for the CLI.
type OutputConfig struct {
	// Format is the output sink: csv, xlsx, sqlite or postgres (default: csv)
	Format string `env:"OUTPUT_FORMAT" default:"csv"`

	// Dir is where relative output paths are written (default: current directory)
	Dir string `env:"OUTPUT_DIR" default:"."`
}

// HistoryConfig holds run history retention settings.
type HistoryConfig struct {
	// RetentionDays is how long run records are kept (default: 30)
	RetentionDays int `env:"HISTORY_RETENTION_DAYS" default:"30"`

	// CheckInterval is how often the purge job runs (default: 24h)
	CheckInterval time.Duration `env:"HISTORY_CHECK_INTERVAL" default:"24h"`
}

// RateLimitConfig holds per-IP rate limiting for the API.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ConvertLimit is requests per minute per IP for the convert endpoint (default: 10)
	ConvertLimit int `env:"RATE_LIMIT_CONVERT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables API key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Enabled exposes /metrics and records stage metrics (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + strconv.Itoa(c.Port)
	}
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// OutputFormats lists the sink names OUTPUT_FORMAT accepts.
var OutputFormats = []string{"csv", "xlsx", "sqlite", "postgres"}

func validFormat(format string) bool {
	for _, f := range OutputFormats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}
