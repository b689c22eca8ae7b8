package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"quiver/internal/domain"
)

// RiskManager enforces pre-trade risk rules such as position sizing limits
// and maximum daily loss constraints.
type RiskManager struct {
	maxPositionPct  float64
	maxDailyLossPct float64

	mu          sync.Mutex
	day         string
	startEquity float64
}

// NewRiskManager creates a RiskManager with the specified risk thresholds.
//
//   - maxPositionPct: maximum fraction of equity allowed in a single position
//     (e.g. 0.10 for 10%).
//   - maxDailyLossPct: maximum fraction of equity that may be lost in a single
//     trading day (e.g. 0.02 for 2%).
func NewRiskManager(maxPositionPct, maxDailyLossPct float64) *RiskManager {
	return &RiskManager{
		maxPositionPct:  maxPositionPct,
		maxDailyLossPct: maxDailyLossPct,
	}
}

// CheckOrder evaluates whether the proposed order complies with the
// configured risk limits given the current account state. price is the
// expected fill price; for limit orders the limit price is used instead.
func (rm *RiskManager) CheckOrder(_ context.Context, order *domain.Order, price float64, account *domain.AccountInfo) error {
	if order.Type == domain.OrderTypeLimit {
		price = order.LimitPrice
	}
	if price <= 0 {
		return fmt.Errorf("no reference price for %s", order.Symbol)
	}
	if account.Equity <= 0 {
		return fmt.Errorf("account equity is %.2f, trading halted", account.Equity)
	}

	if rm.maxPositionPct > 0 {
		notional := order.Qty * price
		limit := account.Equity * rm.maxPositionPct
		if notional > limit {
			return fmt.Errorf("order notional %.2f exceeds position limit %.2f (%.0f%% of equity)",
				notional, limit, rm.maxPositionPct*100)
		}
	}

	if rm.maxDailyLossPct > 0 {
		rm.mu.Lock()
		defer rm.mu.Unlock()
		today := time.Now().Format("2006-01-02")
		if rm.day != today {
			rm.day = today
			rm.startEquity = account.Equity
		}
		drawdown := rm.startEquity - account.Equity
		if drawdown > rm.startEquity*rm.maxDailyLossPct {
			return fmt.Errorf("daily loss %.2f exceeds limit %.2f, trading halted for the day",
				drawdown, rm.startEquity*rm.maxDailyLossPct)
		}
	}

	return nil
}
