// Package observability provides logging, metrics and runtime statistics
// for the data routing layer.
package observability

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with the configuration plumbing used across the
// repo.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger instance.
func NewLogger(level, format string) *Logger {
	var handler slog.Handler

	logLevel := parseLogLevel(level)

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewNopLogger returns a logger that discards everything. Test helper.
func NewNopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 1})),
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// WithFields adds fields to the logger.
func (l *Logger) WithFields(fields ...any) *slog.Logger {
	return l.With(fields...)
}

// LogError logs an error with fields.
func (l *Logger) LogError(msg string, err error, fields ...any) {
	allFields := append(fields, slog.Any("error", err))
	l.Error(msg, allFields...)
}

// parseLogLevel converts string level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
