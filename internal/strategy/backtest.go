package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quiver/internal/backtest"
	"quiver/internal/domain"
)

// Backtester replays historical bar data through a registered strategy and
// returns the full result bundle.
type Backtester struct {
	source   backtest.BarSource
	registry *Registry
	log      *slog.Logger
}

// NewBacktester creates a Backtester that reads bars from the given source and
// looks up strategies in the provided registry.
func NewBacktester(source backtest.BarSource, registry *Registry, log *slog.Logger) *Backtester {
	if log == nil {
		log = slog.Default()
	}
	return &Backtester{
		source:   source,
		registry: registry,
		log:      log.With("component", "backtester"),
	}
}

// Run executes a backtest for the named strategy over the given symbols and
// date range. The strategy is re-initialized first so successive runs do not
// leak indicator state into each other.
func (bt *Backtester) Run(
	ctx context.Context,
	name string,
	symbols []string,
	market domain.Market,
	start, end time.Time,
	cfg backtest.Config,
) (*backtest.Result, error) {
	strat, ok := bt.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (registered: %v)", name, bt.registry.List())
	}
	if err := strat.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing strategy %q: %w", name, err)
	}

	bars, err := backtest.LoadWindow(ctx, bt.source, symbols, market, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading bars: %w", err)
	}

	bt.log.Info("starting backtest",
		"strategy", name,
		"symbols", symbols,
		"bars", len(bars),
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"))

	engine := backtest.NewEngine(cfg, strat, bt.log)
	return engine.Run(ctx, bars)
}
