// Package logger builds the zap loggers used across the service.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a zap logger tuned for the given application environment.
// "development" yields a human-readable console logger at debug level;
// anything else yields a production JSON logger at info level.
func New(appEnv string) (*zap.Logger, error) {
	if appEnv == "development" {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}

	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// NewNamed creates a logger for the given environment with a service name
// attached to every entry.
func NewNamed(appEnv, service string) (*zap.Logger, error) {
	log, err := New(appEnv)
	if err != nil {
		return nil, err
	}
	return log.Named(service), nil
}
