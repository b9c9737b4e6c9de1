package common

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// SetLogger replaces the logger used by every package in the module.
// Passing nil restores the silent default.
//
// Parameters:
//   - l: the zap logger to install
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// Logger returns the current module logger. It never returns nil.
//
// Returns:
//   - *zap.Logger: the installed logger, a no-op logger by default
func Logger() *zap.Logger {
	return logger.Load()
}

// NewConsoleLogger builds a human-readable zap logger at the given level ("debug", "info", "warn", "error").
// Unknown levels fall back to info.
//
// Parameters:
//   - level: the minimum level to emit
//
// Returns:
//   - *zap.Logger: the configured logger
//   - error: an error if zap could not build the logger
func NewConsoleLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}
