// Package log provides the structured logging interface used by the pipeline
// stages and estimators.
//
// The Logger interface keeps a slog-compatible surface (Debug/Info/Warn/Error
// with alternating key-value fields) and is backed by zerolog. Attribute keys
// for ML and pipeline context live in attributes.go.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("tuning").With(
//	    log.ModelFamilyKey, "xgboost",
//	    log.ProblemTypeKey, "regression",
//	)
//	logger.Info("Search finished",
//	    log.OperationKey, log.OperationTune,
//	    log.ScoreKey, 0.81,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key-value pairs. When the first field passed to a
// logging method is an error, it is recorded under the "error" key together
// with its cockroachdb stack trace.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a Logger that adds the given fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates named loggers. It lets tests inject a TestLogger.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}
