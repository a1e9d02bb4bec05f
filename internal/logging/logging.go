// Package logging builds the process logger. Components receive the
// logger as a dependency; nothing in this repository logs through a
// package-level singleton.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a zap logger for the given environment. "prod" gets JSON
// output; anything else gets the human-readable development encoder.
// The level is taken from LOG_LEVEL (debug|info|warn|error), default info.
func New(env string) *zap.Logger {
	var cfg zap.Config
	if env == "prod" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(os.Getenv("LOG_LEVEL")))
	logger, err := cfg.Build()
	if err != nil {
		// Config is static apart from the level, which parseLevel sanitizes.
		panic(err)
	}
	return logger
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
