// File: logging/zap.go
// Author: momentics <momentics@gmail.com>
//
// zap-backed implementation of api.Logger.

package logging

import (
	"fmt"

	"github.com/momentics/cnet/api"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct {
	l *zap.Logger
}

// NewZap adapts l to api.Logger. A nil l yields a no-op logger.
func NewZap(l *zap.Logger) api.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &zapLogger{l: l.WithOptions(zap.AddCallerSkip(1))}
}

// Log formats msg with args when args are present and attaches code as a field.
func (z *zapLogger) Log(level api.Level, code int, msg string, args ...any) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	field := zap.Int("code", code)
	switch level {
	case api.LevelDebug:
		z.l.Debug(msg, field)
	case api.LevelInfo:
		z.l.Info(msg, field)
	case api.LevelWarn:
		z.l.Warn(msg, field)
	default:
		z.l.Error(msg, field)
	}
}

// Nop returns a logger that drops every record.
func Nop() api.Logger {
	return NewZap(zap.NewNop())
}

// ParseLevel converts "debug", "info", "warn" or "error" to a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, errors.Wrapf(api.ErrContractViolation, "log level %q", s)
	}
	return lvl, nil
}

// New builds a zap logger writing to stderr. The returned AtomicLevel can be
// adjusted at runtime, e.g. from a config reload hook.
func New(level string, development bool) (*zap.Logger, zap.AtomicLevel, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	l, err := cfg.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, errors.Wrap(err, "build logger")
	}
	return l, cfg.Level, nil
}
