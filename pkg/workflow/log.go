package workflow

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithLogger returns a context whose flow and node logging goes to l.
// Each worker installs its own log file here, keeping concurrent
// workers out of each other's logs.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// flowLogger returns the context's logger, or the process default.
func flowLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
