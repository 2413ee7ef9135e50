// Package logging builds the zap logger of the cspdemo binary from its
// CSP_LOG_* settings.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the level and encoding of a logger.
type Config struct {
	Name        string
	Level       string // "debug", "info", "warn", "error"
	Development bool
	OutputPaths []string
}

// Select returns the settings for the given mode: info and JSON in
// production, debug and console in development. A non-empty level overrides
// the mode's level.
func Select(name, level string, development bool) Config {
	cfg := Config{Name: name, Level: "info", OutputPaths: []string{"stderr"}}
	if development {
		cfg.Level = "debug"
		cfg.Development = true
	}
	if level != "" {
		cfg.Level = level
	}
	return cfg
}

// New builds the logger described by cfg. Stack traces are only attached in
// development mode.
func New(cfg Config) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapCfg.DisableStacktrace = true
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if cfg.Name != "" {
		logger = logger.Named(cfg.Name)
	}
	return logger, nil
}
