// Package config provides centralized configuration management for postventa.
// It loads configuration from environment variables with defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Source   SourceConfig
	Database DatabaseConfig
	Report   ReportConfig
	Server   ServerConfig
	Upload   UploadConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// SourceConfig describes the inspection spreadsheet and its header vocabulary.
type SourceConfig struct {
	// Path is the spreadsheet read by `postventa run`
	Path string `env:"INPUT_PATH" default:"input/INFORME POSTVENTA BORRADOR.xlsx"`

	// Sheet is the worksheet to read (default: first sheet)
	Sheet string `env:"INPUT_SHEET"`

	// HeaderMarker identifies the header row (default: DETALLE)
	HeaderMarker string `env:"HEADER_MARKER" default:"DETALLE"`

	// UnitKeyword identifies per-unit status columns (default: CASA)
	UnitKeyword string `env:"UNIT_KEYWORD" default:"CASA"`
}

// DatabaseConfig holds the history store connection settings.
type DatabaseConfig struct {
	// URL is a SQLite path or a PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" default:"data/historial_postventa.db"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ReportConfig controls the generated PDF report.
type ReportConfig struct {
	// OutputPath is where `postventa run` writes the PDF
	OutputPath string `env:"REPORT_OUTPUT_PATH" default:"output/informe_postventa.pdf"`

	// Title is printed in the header of every page
	Title string `env:"REPORT_TITLE" default:"INFORME POSTVENTA"`

	// TopUnits is the number of units listed by report count (default: 5)
	TopUnits int `env:"REPORT_TOP_UNITS" default:"5"`

	// TopChapters is the number of chapters listed by frequency (default: 3)
	TopChapters int `env:"REPORT_TOP_CHAPTERS" default:"3"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// UploadConfig holds spreadsheet upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 32MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"33554432"`

	// MaxWaitTime is how long an ingestion waits for the writer slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration of a single ingestion (default: 5m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey guards the ingestion endpoint with X-API-Key (default: false)
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

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
