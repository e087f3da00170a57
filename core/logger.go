package core

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/xr-loader/layer"
	"github.com/wippyai/xr-loader/manifest"
	"github.com/wippyai/xr-loader/runtime"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the core package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the core package's logger.
// This must be called before any loader operations.
func SetLogger(l *zap.Logger) {
	logger = l
}

// SetLoggerAll configures the logger for every loader package at once.
func SetLoggerAll(l *zap.Logger) {
	SetLogger(l)
	manifest.SetLogger(l)
	layer.SetLogger(l)
	runtime.SetLogger(l)
}
