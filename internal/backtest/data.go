package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"quiver/internal/domain"
)

// Fail-fast preconditions for a run. These are operator errors, not
// transient conditions; nothing retries them.
var (
	ErrMissingDateRange = errors.New("backtest: start and end dates must be provided")
	ErrNoData           = errors.New("backtest: no bars in requested window")
)

// BarSource supplies historical bars for a symbol within a window. The
// Parquet store satisfies it.
type BarSource interface {
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)
}

// LoadWindow reads bars for all symbols in [start, end] and returns them
// sorted by (timestamp, symbol). Sorting happens exactly once here; Run
// relies on it as a precondition. An empty window is an error, not an empty
// run.
func LoadWindow(ctx context.Context, src BarSource, symbols []string, market domain.Market, start, end time.Time) ([]domain.Bar, error) {
	if start.IsZero() || end.IsZero() {
		return nil, ErrMissingDateRange
	}

	var bars []domain.Bar
	for _, symbol := range symbols {
		got, err := src.ReadBars(ctx, symbol, string(market), start, end)
		if err != nil {
			return nil, fmt.Errorf("reading bars for %s: %w", symbol, err)
		}
		bars = append(bars, got...)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s to %s",
			ErrNoData, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	sort.Slice(bars, func(i, j int) bool {
		if !bars[i].Timestamp.Equal(bars[j].Timestamp) {
			return bars[i].Timestamp.Before(bars[j].Timestamp)
		}
		return bars[i].Symbol < bars[j].Symbol
	})

	return bars, nil
}
