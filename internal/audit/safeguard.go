package audit

import (
	"context"
	"log/slog"
)

// safeguard runs an adapter body and converts every error and panic into a
// log line. The adapters run inside the caller's business transaction, so
// the never-propagate contract lives here as one visible wrapper instead of
// being re-implemented in each adapter.
func safeguard(ctx context.Context, logger *slog.Logger, metrics *Metrics, op string, fn func(context.Context) error) {
	defer func() {
		if p := recover(); p != nil {
			metrics.IncAdapterError()
			if logger != nil {
				logger.ErrorContext(ctx, "audit adapter panicked", "op", op, "panic", p)
			}
		}
	}()

	if err := fn(ctx); err != nil {
		metrics.IncAdapterError()
		if logger != nil {
			logger.ErrorContext(ctx, "audit adapter failed", "op", op, "error", err)
		}
	}
}
