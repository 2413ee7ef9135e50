// Package config loads the csp runtime settings from CSP_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const Prefix = "CSP"

// Config holds all runtime configuration.
type Config struct {
	LogConfig
	NetworkConfig
	PipelineConfig
	MetricsConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level overrides the mode's level: info, or debug with LOG_DEV.
	Level       string `envconfig:"LOG_LEVEL" default:""`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// NetworkConfig configures the process network and its worker threads.
type NetworkConfig struct {
	Pool         string `envconfig:"POOL" default:"csp"`
	Priority     int    `envconfig:"PRIORITY" default:"0"`
	LockOSThread bool   `envconfig:"LOCK_OS_THREAD" default:"false"`
	MaxProcesses int64  `envconfig:"MAX_PROCESSES" default:"0"`
}

// PipelineConfig configures the channels and stages of a pipeline.
type PipelineConfig struct {
	// BufferSize of the pipeline channels; 0 is rendezvous, -1 unbounded.
	BufferSize     int           `envconfig:"BUFFER_SIZE" default:"0"`
	Lines          int           `envconfig:"LINES" default:"1"`
	CleanupTimeout time.Duration `envconfig:"CLEANUP_TIMEOUT" default:"5s"`
}

// MetricsConfig holds the Prometheus endpoint; empty disables it.
type MetricsConfig struct {
	Addr string `envconfig:"METRICS_ADDR" default:""`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		NetworkConfig: NetworkConfig{
			Pool: "csp",
		},
		PipelineConfig: PipelineConfig{
			Lines:          1,
			CleanupTimeout: 5 * time.Second,
		},
	}
}

func (c *Config) Validate() error {
	if c.Pool == "" {
		return fmt.Errorf("invalid config: %s_POOL must not be empty", Prefix)
	}
	if c.BufferSize < -1 {
		return fmt.Errorf("invalid config: %s_BUFFER_SIZE must be -1 or more, got %d", Prefix, c.BufferSize)
	}
	if c.Lines < 1 {
		return fmt.Errorf("invalid config: %s_LINES must be positive, got %d", Prefix, c.Lines)
	}
	if c.MaxProcesses < 0 {
		return fmt.Errorf("invalid config: %s_MAX_PROCESSES must not be negative", Prefix)
	}
	// every stage replica holds a slot for its whole run, plus one for the source
	if c.MaxProcesses != 0 && c.MaxProcesses < int64(c.Lines)+1 {
		return fmt.Errorf("invalid config: %s_MAX_PROCESSES must be 0 or at least %s_LINES+1 (%d), got %d",
			Prefix, Prefix, c.Lines+1, c.MaxProcesses)
	}
	return nil
}

// Usage prints the recognized environment variables.
func Usage() error {
	return envconfig.Usage(Prefix, &Config{})
}
