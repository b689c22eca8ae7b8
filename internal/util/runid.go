package util

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewRunID generates a unique identifier for a single backtest run, e.g.
// "run_20240102_150405_a1b2c3". The timestamp prefix keeps run directories
// and database rows naturally sorted by start time.
func NewRunID(now time.Time) string {
	return fmt.Sprintf("run_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:6])
}

type runIDKey struct{}

// WithRunID returns a context carrying the given run identifier. Run
// identity always travels in the context so that multiple runs can execute
// independently in one process.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFrom extracts the run identifier from the context, or "" if none is
// set.
func RunIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(runIDKey{}).(string); ok {
		return v
	}
	return ""
}
