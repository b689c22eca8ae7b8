package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"quiver/internal/domain"
)

// Executor translates strategy signals into broker orders. A BUY opens a new
// long position sized as a fraction of available cash; signals for symbols
// already held are ignored. A SELL closes the full held position; sells with
// nothing to close are ignored.
type Executor struct {
	engine  *Engine
	sizePct float64
	log     *slog.Logger
}

// NewExecutor creates an Executor that sizes new positions at sizePct of
// available cash.
func NewExecutor(engine *Engine, sizePct float64, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		engine:  engine,
		sizePct: sizePct,
		log:     log.With("component", "executor"),
	}
}

// ExecuteSignals processes a batch of signals against current prices. A
// failed order does not stop the batch; the first error is returned after
// every signal has been attempted.
func (x *Executor) ExecuteSignals(ctx context.Context, signals []domain.Signal, prices map[string]float64) error {
	if len(signals) == 0 {
		return nil
	}

	positions, err := x.engine.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("fetching positions: %w", err)
	}
	held := make(map[string]domain.Position, len(positions))
	for _, p := range positions {
		held[p.Symbol] = p
	}

	account, err := x.engine.GetAccount(ctx)
	if err != nil {
		return fmt.Errorf("fetching account: %w", err)
	}

	var firstErr error
	for _, sig := range signals {
		price, ok := prices[sig.Symbol]
		if !ok || price <= 0 {
			x.log.Warn("skipping signal with no price", "symbol", sig.Symbol, "side", sig.Side)
			continue
		}

		var order *domain.Order
		switch sig.Side {
		case domain.SideBuy:
			if _, holding := held[sig.Symbol]; holding {
				x.log.Debug("already holding, skipping buy", "symbol", sig.Symbol)
				continue
			}
			qty := math.Floor(account.Cash * x.sizePct / price)
			if qty <= 0 {
				x.log.Debug("buy unaffordable, skipping", "symbol", sig.Symbol, "price", price)
				continue
			}
			order = &domain.Order{
				Symbol: sig.Symbol,
				Side:   domain.OrderSideBuy,
				Type:   domain.OrderTypeMarket,
				Qty:    qty,
			}

		case domain.SideSell:
			p, holding := held[sig.Symbol]
			if !holding || p.Side != domain.PositionSideLong {
				x.log.Debug("nothing to sell, skipping", "symbol", sig.Symbol)
				continue
			}
			order = &domain.Order{
				Symbol: sig.Symbol,
				Side:   domain.OrderSideSell,
				Type:   domain.OrderTypeMarket,
				Qty:    p.Qty,
			}

		default:
			continue
		}

		if _, err := x.engine.SubmitOrder(ctx, order, price); err != nil {
			x.log.Error("signal execution failed",
				"symbol", sig.Symbol, "side", sig.Side, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
