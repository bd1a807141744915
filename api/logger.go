// File: api/logger.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Logging capability consumed by the pool and the socket lifecycle layer.

package api

// Level is the severity of a log record.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Logger receives a severity, a numeric code, and a printf-style message.
// Formatting, sinks and persistence belong to the implementation.
type Logger interface {
	Log(level Level, code int, msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Log(Level, int, string, ...any) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return nopLogger{} }
