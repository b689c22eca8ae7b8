package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiver/internal/domain"
)

// Compile-time interface check.
var _ Broker = (*SimulatorBroker)(nil)

// SimulatorBroker implements the Broker interface for paper trading. Orders
// fill immediately at the last known price for the symbol; positions, cash,
// and the order journal are tracked in memory. Safe for concurrent use.
type SimulatorBroker struct {
	mu        sync.Mutex
	cash      float64
	prices    map[string]float64
	positions map[string]*domain.Position
	orders    map[string]*domain.Order
	now       func() time.Time
}

// NewSimulatorBroker creates a SimulatorBroker starting with the given cash
// balance and no positions.
func NewSimulatorBroker(initialCash float64) *SimulatorBroker {
	return &SimulatorBroker{
		cash:      initialCash,
		prices:    make(map[string]float64),
		positions: make(map[string]*domain.Position),
		orders:    make(map[string]*domain.Order),
		now:       time.Now,
	}
}

// Name returns "simulator".
func (b *SimulatorBroker) Name() string {
	return "simulator"
}

// SetPrice updates the last known price for a symbol. Market orders fill at
// this price; position market values are marked against it.
func (b *SimulatorBroker) SetPrice(symbol string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[symbol] = price
	if p, ok := b.positions[symbol]; ok {
		b.mark(p, price)
	}
}

// SubmitOrder fills the order immediately at the last known price. Orders
// for symbols with no known price, or buys exceeding available cash, are
// journaled as rejected and returned with an error.
func (b *SimulatorBroker) SubmitOrder(_ context.Context, order *domain.Order) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	filled := *order
	filled.ID = uuid.NewString()
	filled.CreatedAt = now
	filled.UpdatedAt = now

	price, ok := b.prices[order.Symbol]
	if order.Type == domain.OrderTypeLimit {
		price = order.LimitPrice
		ok = price > 0
	}
	if !ok || price <= 0 {
		filled.Status = domain.OrderStatusRejected
		b.orders[filled.ID] = &filled
		return &filled, fmt.Errorf("no price available for %s", order.Symbol)
	}

	notional := order.Qty * price
	if order.Side == domain.OrderSideBuy && notional > b.cash {
		filled.Status = domain.OrderStatusRejected
		b.orders[filled.ID] = &filled
		return &filled, fmt.Errorf("insufficient cash for %s: need %.2f, have %.2f",
			order.Symbol, notional, b.cash)
	}

	if order.Side == domain.OrderSideBuy {
		b.cash -= notional
		b.applyFill(order.Symbol, order.Qty, price)
	} else {
		b.cash += notional
		b.applyFill(order.Symbol, -order.Qty, price)
	}

	filled.Status = domain.OrderStatusFilled
	filled.FilledQty = order.Qty
	filled.FilledAvgPrice = price
	b.orders[filled.ID] = &filled
	return &filled, nil
}

// CancelOrder marks the specified order as cancelled. Filled orders cannot
// be cancelled.
func (b *SimulatorBroker) CancelOrder(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s not found", orderID)
	}
	if o.Status == domain.OrderStatusFilled {
		return fmt.Errorf("order %s already filled", orderID)
	}
	o.Status = domain.OrderStatusCancelled
	o.UpdatedAt = b.now()
	return nil
}

// GetPositions returns all open simulated positions.
func (b *SimulatorBroker) GetPositions(_ context.Context) ([]domain.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	positions := make([]domain.Position, 0, len(b.positions))
	for _, p := range b.positions {
		positions = append(positions, *p)
	}
	return positions, nil
}

// GetAccount returns simulated account information. Equity is cash plus the
// market value of all positions at their last known prices.
func (b *SimulatorBroker) GetAccount(_ context.Context) (*domain.AccountInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	equity := b.cash
	for _, p := range b.positions {
		equity += p.MarketValue
	}
	return &domain.AccountInfo{
		Equity:      equity,
		Cash:        b.cash,
		BuyingPower: b.cash,
	}, nil
}

// applyFill adjusts the position for symbol by signed qty at price, removing
// the position entirely when it goes flat. Callers must hold b.mu.
func (b *SimulatorBroker) applyFill(symbol string, qty, price float64) {
	p, ok := b.positions[symbol]
	if !ok {
		p = &domain.Position{Symbol: symbol}
		b.positions[symbol] = p
	}

	signed := p.Qty
	if p.Side == domain.PositionSideShort {
		signed = -signed
	}
	newSigned := signed + qty

	switch {
	case newSigned == 0:
		delete(b.positions, symbol)
		return
	case signed == 0 || (signed > 0) == (newSigned > 0) && abs(newSigned) > abs(signed):
		// Opening or adding: weighted-average entry price.
		p.AvgEntryPrice = (p.AvgEntryPrice*abs(signed) + price*abs(qty)) / abs(newSigned)
	case (signed > 0) != (newSigned > 0):
		// Flipped through flat: the residual opens at the fill price.
		p.AvgEntryPrice = price
	}

	if newSigned > 0 {
		p.Side = domain.PositionSideLong
		p.Qty = newSigned
	} else {
		p.Side = domain.PositionSideShort
		p.Qty = -newSigned
	}
	b.mark(p, price)
}

// mark refreshes a position's market value and unrealized P&L at price.
func (b *SimulatorBroker) mark(p *domain.Position, price float64) {
	signed := p.Qty
	if p.Side == domain.PositionSideShort {
		signed = -signed
	}
	p.MarketValue = signed * price
	p.UnrealizedPL = signed * (price - p.AvgEntryPrice)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
