// Package config holds the moonlink configuration: struct-tag defaults, optional YAML
// file overrides and logger construction.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/moonlink/internal/transfer"
	"gopkg.in/yaml.v3"
)

// Backends that can drive the radio
const (
	BackendAuto   = "auto"
	BackendGoBLE  = "goble"
	BackendTinyGo = "tinygo"
)

// Config holds application configuration
type Config struct {
	LogLevel       string            `yaml:"log_level" default:"panic"`
	Backend        string            `yaml:"backend" default:"auto"`
	DeviceName     string            `yaml:"device_name" default:"moonboard"`
	ScanTimeout    time.Duration     `yaml:"scan_timeout" default:"30s"`
	ConnectTimeout time.Duration     `yaml:"connect_timeout" default:"30s"`
	Transfer       transfer.Settings `yaml:"transfer"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that cannot be clamped
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Backend {
	case BackendAuto, BackendGoBLE, BackendTinyGo:
	default:
		return fmt.Errorf("unknown backend %q (must be %s, %s or %s)", c.Backend, BackendAuto, BackendGoBLE, BackendTinyGo)
	}
	if c.ScanTimeout <= 0 {
		return fmt.Errorf("scan timeout must be positive, got %s", c.ScanTimeout)
	}
	if c.Transfer.ChunkSize < 1 || c.Transfer.ChunkSize > transfer.MaxChunkSize {
		return fmt.Errorf("chunk size must be between 1 and %d, got %d", transfer.MaxChunkSize, c.Transfer.ChunkSize)
	}
	if c.Transfer.InterChunkDelay < 0 {
		return fmt.Errorf("inter-chunk delay must not be negative, got %s", c.Transfer.InterChunkDelay)
	}
	return nil
}

// Level parses LogLevel. An empty level is silent.
func (c *Config) Level() (logrus.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "", "panic":
		return logrus.PanicLevel, nil
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	default:
		return logrus.PanicLevel, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}
}

// YAML renders the effective configuration
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	level, err := c.Level()
	if err != nil {
		level = logrus.PanicLevel
	}

	logger := logrus.New()
	logger.SetLevel(level)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
