// Package store defines storage interfaces for persisting and retrieving
// market data, backtest runs, and order journals.
package store

import (
	"context"
	"time"

	"quiver/internal/backtest"
	"quiver/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage under the given market.
	WriteBars(ctx context.Context, bars []domain.Bar, market domain.Market) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market domain.Market) ([]string, error)
}

// TickStore persists and retrieves individual trade (tick) data.
type TickStore interface {
	// WriteTicks persists a batch of ticks to storage.
	WriteTicks(ctx context.Context, ticks []domain.Tick) error

	// ReadTicks returns ticks for the given symbol within [start, end].
	ReadTicks(ctx context.Context, symbol string, start, end time.Time) ([]domain.Tick, error)
}

// RunMeta describes one backtest run.
type RunMeta struct {
	ID             string
	Strategy       string
	Market         domain.Market
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	CreatedAt      time.Time
}

// RunStore persists completed backtest runs and their result bundles.
type RunStore interface {
	// SaveRun persists a run's metadata and full result bundle.
	SaveRun(ctx context.Context, meta RunMeta, result *backtest.Result) error

	// GetRun retrieves a run and its result bundle by ID.
	GetRun(ctx context.Context, id string) (*RunMeta, *backtest.Result, error)

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]RunMeta, error)
}

// OrderStore journals orders submitted by the live executor.
type OrderStore interface {
	// SaveOrder appends an order to the journal.
	SaveOrder(ctx context.Context, order *domain.Order) error

	// ListOrders returns the most recent journaled orders, newest first,
	// up to limit.
	ListOrders(ctx context.Context, limit int) ([]domain.Order, error)
}
