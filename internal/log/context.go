package log

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithContext returns a context carrying a request-scoped logger.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger attached to the context. When none was
// attached it falls back to a logger over the process default handler.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: ComponentApp,
	}
}
