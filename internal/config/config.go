// Package config provides configuration loading for the depot ingest service.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete depot service configuration
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
	Ingest IngestConfig `yaml:"ingest"`
	Inbox  InboxConfig  `yaml:"inbox"`
}

// LogConfig configures structured logging
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `yaml:"level"`
	// Pretty enables console-formatted output for development
	Pretty bool `yaml:"pretty"`
}

// ServerConfig configures the observability HTTP server
type ServerConfig struct {
	// MetricsPort serves /metrics, /health and pprof endpoints
	MetricsPort int `yaml:"metrics_port"`
}

// IngestConfig configures the orchestrator
type IngestConfig struct {
	// Workers bounds how many phases run concurrently across deposits
	Workers int `yaml:"workers"`
	// PauseAfterValidation pauses each deposit after the validation phase
	// so an operator can review the event log before archiving proceeds
	PauseAfterValidation bool `yaml:"pause_after_validation"`
}

// InboxConfig configures the package intake watcher
type InboxConfig struct {
	// Dir is the directory watched for extracted packages (empty disables
	// watching; deposits must then be submitted programmatically)
	Dir string `yaml:"dir"`
	// SettleDelay is how long a package directory must stay quiet before
	// it is submitted as a deposit
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Pretty: false,
		},
		Server: ServerConfig{
			MetricsPort: 9090,
		},
		Ingest: IngestConfig{
			Workers:              4,
			PauseAfterValidation: false,
		},
		Inbox: InboxConfig{
			Dir:         "",
			SettleDelay: 2 * time.Second,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("server.metrics_port must be a valid port")
	}
	if c.Ingest.Workers <= 0 {
		return fmt.Errorf("ingest.workers must be positive")
	}
	if c.Inbox.SettleDelay <= 0 {
		return fmt.Errorf("inbox.settle_delay must be positive")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, layered over defaults
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Load returns the configuration from path, or defaults when path is empty
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFromFile(path)
}
