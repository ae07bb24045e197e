package log

import (
	"context"

	"github.com/rs/zerolog"
)

// WithLogger attaches a request-scoped logger to the context, using
// zerolog's own context carrier.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return logger.WithContext(ctx)
}

// Ctx returns the logger attached to the context, falling back to the
// process-wide logger when the context carries none.
func Ctx(ctx context.Context) zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return *l
	}
	return L()
}
