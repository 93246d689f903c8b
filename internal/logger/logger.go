// Package logger wraps zap with the small key-value surface the engine needs.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

// Logger is a structured, leveled logger. A nil *Logger is valid and silently
// discards every call, so components can hold an optional logger without
// nil-checking at every call site.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger for the given mode ("production" or "prod", case- and
// space-insensitive; anything else is treated as development:
// human-readable, debug level).
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar()}, nil
}

// Noop returns a Logger that discards everything, useful for tests that
// don't care about log output but still want to exercise logging call sites.
func Noop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	if l == nil || l.sugar == nil {
		return
	}
	_ = l.sugar.Sync()
}

func (l *Logger) Debug(msg string, kv ...interface{}) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Debugw(msg, kv...)
}

func (l *Logger) Info(msg string, kv ...interface{}) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Infow(msg, kv...)
}

func (l *Logger) Warn(msg string, kv ...interface{}) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Warnw(msg, kv...)
}

func (l *Logger) Error(msg string, kv ...interface{}) {
	if l == nil || l.sugar == nil {
		return
	}
	l.sugar.Errorw(msg, kv...)
}

// Fatal logs at fatal level and terminates the process, mirroring
// zap.SugaredLogger.Fatalw. A nil Logger still exits, since callers use
// Fatal for preconditions the process cannot continue past regardless of
// whether logging is configured.
func (l *Logger) Fatal(msg string, kv ...interface{}) {
	if l == nil || l.sugar == nil {
		os.Exit(1)
	}
	l.sugar.Fatalw(msg, kv...)
}

// With returns a child logger carrying the given key-value pairs on every
// subsequent call, the way component constructors scope a base logger.
func (l *Logger) With(kv ...interface{}) *Logger {
	if l == nil || l.sugar == nil {
		return l
	}
	return &Logger{sugar: l.sugar.With(kv...)}
}
