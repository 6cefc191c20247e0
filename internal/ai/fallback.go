package ai

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
)

// ErrNoWriters is returned by a fallback chain with nothing configured.
var ErrNoWriters = errors.New("ai: no writers configured")

// fallbackWriter calls each Writer in order and returns the first success.
// The provider order is chosen in main.go.
type fallbackWriter struct {
	writers []Writer
	logger  *slog.Logger
}

// NewFallbackWriter returns a Writer that tries writers in order. Nil
// entries are skipped. When every writer fails, the errors are joined.
func NewFallbackWriter(logger *slog.Logger, writers ...Writer) Writer {
	var chain []Writer
	for _, w := range writers {
		if w != nil {
			chain = append(chain, w)
		}
	}
	return &fallbackWriter{writers: chain, logger: logger}
}

// WriteBlueprint tries each writer until one succeeds or ctx is done.
func (f *fallbackWriter) WriteBlueprint(ctx context.Context, res assessment.Result) (Blueprint, error) {
	if len(f.writers) == 0 {
		return Blueprint{}, ErrNoWriters
	}

	var errs []error
	for i, w := range f.writers {
		bp, err := w.WriteBlueprint(ctx, res)
		if err == nil {
			return bp, nil
		}
		errs = append(errs, err)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Blueprint{}, errors.Join(append(errs, ctxErr)...)
		}
		if i < len(f.writers)-1 {
			attrs := []any{"position", i, "error", err}
			var pe *ProviderError
			if errors.As(err, &pe) {
				attrs = append(attrs, "provider", pe.Provider, "status", pe.Status, "temporary", pe.Temporary())
			}
			f.logger.Warn("ai: writer failed, trying next", attrs...)
		}
	}

	return Blueprint{}, errors.Join(errs...)
}
