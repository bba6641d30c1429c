package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger flavor. Development uses a console encoder with
// colored levels; otherwise JSON is written.
type Config struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"` // debug, info, warn, error
}

// New creates a new zap logger
func New(development bool) (*zap.Logger, error) {
	return Build(Config{Development: development})
}

// Build creates a logger from config. An empty level keeps the flavor's default.
func Build(c Config) (*zap.Logger, error) {
	var cfg zap.Config

	if c.Development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	if c.Level != "" {
		level, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	return cfg.Build()
}

// Must creates a logger or panics
func Must(development bool) *zap.Logger {
	log, err := New(development)
	if err != nil {
		panic(err)
	}
	return log
}
