// Package obs holds the ambient observability stack: structured logging,
// Prometheus metrics, and build info.
package obs

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerOnce sync.Once
	logger     *zap.Logger
)

// Logger returns the process-wide structured JSON logger, built once from
// LOG_LEVEL (info by default).
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		level := zapcore.InfoLevel
		if l := os.Getenv("LOG_LEVEL"); l != "" {
			_ = level.Set(l)
		}
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		built, err := cfg.Build()
		if err != nil {
			// Build only fails on malformed config; fall back to a bare
			// logger rather than leaving the process without one.
			built = zap.NewNop()
		}
		logger = built
	})
	return logger
}

// Sync flushes any buffered log entries; call during graceful shutdown.
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}

// SetLogger overrides the process-wide logger. Intended for tests that need
// to assert on emitted log entries.
func SetLogger(l *zap.Logger) {
	loggerOnce.Do(func() {})
	logger = l
}
