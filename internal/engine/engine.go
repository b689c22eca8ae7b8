// Package engine coordinates order management, position tracking, and risk
// checking across the trading system.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"quiver/internal/broker"
	"quiver/internal/domain"
	"quiver/internal/store"
)

// Engine orchestrates the trading lifecycle by delegating to a broker for
// execution, an order journal for persistence, and a risk manager for
// pre-trade checks.
type Engine struct {
	broker broker.Broker
	orders store.OrderStore
	risk   *RiskManager
	log    *slog.Logger
}

// NewEngine creates a new Engine wired with the given dependencies. The
// order journal is optional; a nil store disables journaling.
func NewEngine(b broker.Broker, orders store.OrderStore, risk *RiskManager, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		broker: b,
		orders: orders,
		risk:   risk,
		log:    log.With("component", "engine", "broker", b.Name()),
	}
}

// SubmitOrder validates the order against risk rules, forwards it to the
// broker, and journals the broker's response. price is the expected fill
// price used for risk sizing.
func (e *Engine) SubmitOrder(ctx context.Context, order *domain.Order, price float64) (*domain.Order, error) {
	if e.risk != nil {
		account, err := e.broker.GetAccount(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetching account for risk check: %w", err)
		}
		if err := e.risk.CheckOrder(ctx, order, price, account); err != nil {
			e.log.Warn("order rejected by risk check",
				"symbol", order.Symbol, "side", order.Side, "qty", order.Qty, "err", err)
			return nil, fmt.Errorf("risk check: %w", err)
		}
	}

	placed, err := e.broker.SubmitOrder(ctx, order)
	if placed != nil {
		e.journal(ctx, placed)
	}
	if err != nil {
		return placed, fmt.Errorf("submitting order: %w", err)
	}

	e.log.Info("order submitted",
		"id", placed.ID, "symbol", placed.Symbol, "side", placed.Side,
		"qty", placed.Qty, "status", placed.Status)
	return placed, nil
}

// CancelOrder requests cancellation of an open order.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) error {
	if err := e.broker.CancelOrder(ctx, orderID); err != nil {
		return fmt.Errorf("cancelling order: %w", err)
	}
	e.log.Info("order cancelled", "id", orderID)
	return nil
}

// GetPositions returns all currently open positions.
func (e *Engine) GetPositions(ctx context.Context) ([]domain.Position, error) {
	return e.broker.GetPositions(ctx)
}

// GetAccount returns the current account snapshot.
func (e *Engine) GetAccount(ctx context.Context) (*domain.AccountInfo, error) {
	return e.broker.GetAccount(ctx)
}

// journal persists an order outcome; journaling failure is logged, not
// fatal, since the broker already holds the authoritative record.
func (e *Engine) journal(ctx context.Context, order *domain.Order) {
	if e.orders == nil {
		return
	}
	if err := e.orders.SaveOrder(ctx, order); err != nil {
		e.log.Error("journaling order failed", "id", order.ID, "err", err)
	}
}
