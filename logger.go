package neighbors

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/neighbors/index"
)

// Logger wraps slog.Logger with neighbors-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithKind adds an index kind field to the logger.
func (l *Logger) WithKind(kind index.Kind) *Logger {
	return &Logger{
		Logger: l.Logger.With("kind", kind.String()),
	}
}

// WithK adds a k (neighbor count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// LogBuild logs an index build.
func (l *Logger) LogBuild(ctx context.Context, kind index.Kind, n, dim int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "build failed",
			"kind", kind.String(),
			"points", n,
			"dimension", dim,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "build completed",
			"kind", kind.String(),
			"points", n,
			"dimension", dim,
			"duration", duration,
		)
	}
}

// LogSearch logs a batch search operation.
func (l *Logger) LogSearch(ctx context.Context, op string, queries, chunks int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"op", op,
			"queries", queries,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"op", op,
			"queries", queries,
			"chunks", chunks,
			"duration", duration,
		)
	}
}
