// Package config loads luna-browser settings from an optional YAML file and
// merges them with command line overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr      = ":8080"
	DefaultTimeout   = 30 * time.Second
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Config holds settings shared by every command
type Config struct {
	AugurHost   string        `yaml:"augur_host"`
	Addr        string        `yaml:"addr"`
	RowsPerPage int           `yaml:"rows_per_page"`
	Timeout     time.Duration `yaml:"timeout"`
	LogLevel    string        `yaml:"log_level"`
	LogFormat   string        `yaml:"log_format"`
}

// Default returns the built-in settings. AugurHost has no default: an empty
// host is reported per request, not at startup.
func Default() Config {
	return Config{
		Addr:      DefaultAddr,
		Timeout:   DefaultTimeout,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

// Load reads a YAML file on top of the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg.Merge(fromFile), nil
}

// Merge returns c with every non-zero field of override applied
func (c Config) Merge(override Config) Config {
	if override.AugurHost != "" {
		c.AugurHost = override.AugurHost
	}
	if override.Addr != "" {
		c.Addr = override.Addr
	}
	if override.RowsPerPage != 0 {
		c.RowsPerPage = override.RowsPerPage
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.LogLevel != "" {
		c.LogLevel = override.LogLevel
	}
	if override.LogFormat != "" {
		c.LogFormat = override.LogFormat
	}
	return c
}

// Validate checks field ranges and normalizes the host and log settings
func (c *Config) Validate() error {
	c.AugurHost = strings.TrimRight(strings.TrimSpace(c.AugurHost), "/")
	if c.AugurHost != "" {
		u, err := url.Parse(c.AugurHost)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: augur_host %q must be an http(s) URL", ErrInvalidConfig, c.AugurHost)
		}
	}

	if c.RowsPerPage < 0 {
		return fmt.Errorf("%w: rows_per_page must not be negative", ErrInvalidConfig)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidConfig)
	}

	c.LogLevel = strings.ToLower(c.LogLevel)
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}

	c.LogFormat = strings.ToLower(c.LogFormat)
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
