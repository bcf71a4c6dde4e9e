// Package logging provides named loggers for the SDK packages.
//
// Each package fetches its logger once via GetLogger("pkg"); levels for all
// named loggers can be raised or lowered at runtime through SetLevel, which
// the CLI wires to its --log-level flag.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// --------------------------------------------------------------------------
// Logger Factory
// --------------------------------------------------------------------------

var (
	mu    sync.Mutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	root  *zap.Logger
	named = map[string]*zap.SugaredLogger{}
)

// GetLogger returns the sugared logger for the given subsystem name,
// creating it on first use. Loggers share one core and one atomic level.
func GetLogger(name string) *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := named[name]; ok {
		return l
	}
	if root == nil {
		cfg := zap.NewProductionConfig()
		cfg.Level = level
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		logger, err := cfg.Build(zap.AddStacktrace(zapcore.FatalLevel))
		if err != nil {
			// zap only fails on invalid config; fall back to a no-op core
			logger = zap.NewNop()
		}
		root = logger
	}
	l := root.Named(name).Sugar()
	named[name] = l
	return l
}

// SetLevel changes the level of all named loggers. Accepted values are
// debug, info, warn and error.
func SetLevel(s string) error {
	switch strings.ToLower(s) {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "info":
		level.SetLevel(zapcore.InfoLevel)
	case "warning", "warn":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
	return nil
}
