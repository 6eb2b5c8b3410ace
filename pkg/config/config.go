// Package config provides configuration types and loading for the engine.
// A single YAML file is the entry point; environment variables may be
// referenced anywhere in it.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database,omitempty"`
	Blobs    BlobConfig     `yaml:"blobs,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Tracing  TracingConfig  `yaml:"tracing,omitempty"`
	Jobs     JobsConfig     `yaml:"jobs,omitempty"`
	HTTP     HTTPConfig     `yaml:"http,omitempty"`
}

// DatabaseConfig selects the SQL backend shared by all stores.
type DatabaseConfig struct {
	Dialect string `yaml:"dialect"` // "sqlite" or "postgres"
	DSN     string `yaml:"dsn"`
}

func (c *DatabaseConfig) SetDefaults() {
	if c.Dialect == "" {
		c.Dialect = "sqlite"
	}
	if c.DSN == "" && c.Dialect == "sqlite" {
		c.DSN = "medivault.db"
	}
}

func (c *DatabaseConfig) Validate() error {
	switch c.Dialect {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database dialect: %s", c.Dialect)
	}
	if c.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	return nil
}

// DriverName maps the dialect to its database/sql driver.
func (c *DatabaseConfig) DriverName() string {
	if c.Dialect == "postgres" {
		return "postgres"
	}
	return "sqlite3"
}

// BlobConfig locates the on-disk file blob store.
type BlobConfig struct {
	Root string `yaml:"root"`
}

func (c *BlobConfig) SetDefaults() {
	if c.Root == "" {
		c.Root = "blobs"
	}
}

func (c *BlobConfig) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("blob root is required")
	}
	return nil
}

// LoggingConfig controls the process-wide logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // "text" or "json"
}

func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Level)
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}
	return nil
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Service string `yaml:"service,omitempty"`
}

func (c *TracingConfig) SetDefaults() {
	if c.Service == "" {
		c.Service = "medivault"
	}
}

func (c *TracingConfig) Validate() error {
	return nil
}

// JobsConfig tunes the background job queue.
type JobsConfig struct {
	Workers     int `yaml:"workers"`
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelay   int `yaml:"base_delay"` // seconds
}

func (c *JobsConfig) SetDefaults() {
	if c.Workers == 0 {
		c.Workers = 2
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay == 0 {
		c.BaseDelay = 1
	}
}

// BaseDelayDuration returns the retry base delay as a duration.
func (c *JobsConfig) BaseDelayDuration() time.Duration {
	return time.Duration(c.BaseDelay) * time.Second
}

func (c *JobsConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("jobs workers must be at least 1")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("jobs max_attempts must be at least 1")
	}
	return nil
}

// HTTPConfig tunes the outbound HTTP client used by tools and webhooks.
type HTTPConfig struct {
	Timeout int `yaml:"timeout"` // seconds
}

func (c *HTTPConfig) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30
	}
}

// TimeoutDuration returns the client timeout as a duration.
func (c *HTTPConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *HTTPConfig) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("http timeout must not be negative")
	}
	return nil
}

// SetDefaults fills every unset field with its default.
func (c *Config) SetDefaults() {
	c.Database.SetDefaults()
	c.Blobs.SetDefaults()
	c.Logging.SetDefaults()
	c.Tracing.SetDefaults()
	c.Jobs.SetDefaults()
	c.HTTP.SetDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Blobs.Validate(); err != nil {
		return fmt.Errorf("blobs: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if err := c.Jobs.Validate(); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// Load parses YAML from raw, expands environment variable references,
// applies defaults and validates.
func Load(raw []byte) (*Config, error) {
	expanded := expandEnvVars(string(raw))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads and parses the configuration file at path.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Load(raw)
}
