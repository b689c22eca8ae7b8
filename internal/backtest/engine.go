package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"quiver/internal/domain"
	"quiver/internal/util"
)

// SignalGenerator is the strategy capability consumed by the Engine: given
// the bars for one timestamp, it returns zero or more signals. The engine
// never assumes which concrete strategy sits behind it.
type SignalGenerator interface {
	GenerateSignals(ctx context.Context, slice []domain.Bar) ([]domain.Signal, error)
}

// Config holds the simulation parameters for one Engine.
type Config struct {
	InitialCapital float64
	CommissionRate float64
	Slippage       float64
	NotionalCap    float64 // max notional per single trade
	SizePct        float64 // fraction of cash allocated per trade
}

// PortfolioValue is one point of the equity curve.
type PortfolioValue struct {
	Timestamp time.Time
	Value     float64
}

// SignalRecord is a signal that actually resulted in a trade, annotated
// with the reference price and sized quantity.
type SignalRecord struct {
	domain.Signal
	Price    float64
	Quantity int64
}

// Result is the bundle produced by a completed run.
type Result struct {
	RunID       string
	Performance PerformanceMetrics
	TradeStats  TradeMetrics
	Summary     Summary
	Signals     []SignalRecord
	Values      []PortfolioValue
	Trades      []TradeRecord
}

// Engine replays a sorted bar series through a signal generator, sizing and
// executing the resulting signals against its portfolio. One Engine owns
// one Portfolio exclusively; nothing here is safe for concurrent use, and
// nothing needs to be: a run is a single-threaded batch computation.
type Engine struct {
	cfg       Config
	generator SignalGenerator
	portfolio *Portfolio
	log       *slog.Logger
}

// NewEngine creates an Engine with a fresh portfolio.
func NewEngine(cfg Config, generator SignalGenerator, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		cfg:       cfg,
		generator: generator,
		portfolio: NewPortfolio(cfg.InitialCapital, cfg.CommissionRate, cfg.Slippage),
		log:       log.With("component", "backtest"),
	}
}

// Run replays bars, which must be sorted ascending by timestamp (LoadWindow
// establishes this once at load time; the engine does not re-sort). For
// each distinct timestamp it updates current prices for the whole slice,
// invokes the signal generator against that fully-updated price view, then
// executes sized trades and snapshots portfolio value. A generator error
// aborts the run: a half-replayed ledger is worse than no result.
func (e *Engine) Run(ctx context.Context, bars []domain.Bar) (*Result, error) {
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	runID := util.RunIDFrom(ctx)
	currentPrices := make(map[string]float64)
	var signals []SignalRecord
	var values []PortfolioValue

	for i := 0; i < len(bars); {
		// One slice per distinct timestamp.
		ts := bars[i].Timestamp
		j := i
		for j < len(bars) && bars[j].Timestamp.Equal(ts) {
			j++
		}
		slice := bars[i:j]
		i = j

		// All prices update before the generator sees the slice.
		for _, b := range slice {
			currentPrices[b.Symbol] = b.Close
		}

		sigs, err := e.generator.GenerateSignals(ctx, slice)
		if err != nil {
			return nil, fmt.Errorf("generating signals at %s: %w", ts.Format(time.RFC3339), err)
		}

		// Sizing reads the cash balance as of slice start; multiple signals
		// in one slice can jointly overspend it.
		sliceCash := e.portfolio.Cash
		for _, sig := range sigs {
			price, ok := currentPrices[sig.Symbol]
			if !ok || price <= 0 {
				continue
			}

			notional := math.Min(sliceCash*e.cfg.SizePct, e.cfg.NotionalCap)
			quantity := int64(notional / price)
			if quantity <= 0 {
				continue
			}
			if sig.Side == domain.SideSell {
				quantity = -quantity
			}

			e.portfolio.ExecuteTrade(sig.Symbol, quantity, price, sig.Timestamp)
			signals = append(signals, SignalRecord{
				Signal:   sig,
				Price:    price,
				Quantity: quantity,
			})

			e.log.Debug("executed signal",
				"runID", runID,
				"symbol", sig.Symbol,
				"side", sig.Side,
				"quantity", quantity,
				"price", price,
				"cash", e.portfolio.Cash)
		}

		values = append(values, PortfolioValue{
			Timestamp: ts,
			Value:     e.portfolio.TotalValue(currentPrices),
		})
	}

	result := &Result{
		RunID:       runID,
		Performance: CalculatePerformanceMetrics(values),
		TradeStats:  CalculateTradeMetrics(e.portfolio.Trades()),
		Summary:     e.portfolio.PerformanceSummary(),
		Signals:     signals,
		Values:      values,
		Trades:      e.portfolio.Trades(),
	}

	e.log.Info("backtest complete",
		"runID", runID,
		"timestamps", len(values),
		"trades", result.Summary.TotalTrades,
		"endingCash", result.Summary.EndingCash)

	return result, nil
}

// Portfolio exposes the engine's portfolio for post-run inspection.
func (e *Engine) Portfolio() *Portfolio {
	return e.portfolio
}
