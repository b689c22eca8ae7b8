package backtest

import (
	"math"
	"time"
)

// TradeRecord is an immutable record of one executed fill, appended to the
// portfolio's trade log in execution order.
type TradeRecord struct {
	Timestamp  time.Time
	Symbol     string
	Quantity   int64
	Price      float64 // executed price, slippage included
	Commission float64
	Cash       float64 // cash balance after this fill
}

// Summary aggregates realized performance over a portfolio's trade history.
// Unrealized P&L on positions still open at the end of a run is excluded.
type Summary struct {
	TotalTrades     int
	TotalCommission float64
	RealizedPnL     float64
	EndingCash      float64
	ReturnPct       float64
}

// Portfolio tracks cash, per-symbol positions, and an append-only trade log
// through one backtest run. It is constructed once per run, mutated
// trade-by-trade, then read for summary extraction. A Portfolio is owned by
// a single Engine; it is not safe for concurrent use.
type Portfolio struct {
	InitialCapital float64
	CommissionRate float64
	Slippage       float64
	Cash           float64

	positions map[string]*Position
	trades    []TradeRecord
}

// NewPortfolio creates a Portfolio funded with initialCapital.
func NewPortfolio(initialCapital, commissionRate, slippage float64) *Portfolio {
	return &Portfolio{
		InitialCapital: initialCapital,
		CommissionRate: commissionRate,
		Slippage:       slippage,
		Cash:           initialCapital,
		positions:      make(map[string]*Position),
	}
}

// position returns the ledger entry for symbol, creating it on first use.
// Entries persist for the portfolio's lifetime, even when flat.
func (p *Portfolio) position(symbol string) *Position {
	pos, ok := p.positions[symbol]
	if !ok {
		pos = &Position{Symbol: symbol}
		p.positions[symbol] = pos
	}
	return pos
}

// ExecuteTrade fills quantity shares of symbol at the given reference
// price. Slippage always moves the executed price against the trader, and
// commission is proportional to executed notional. Cash is debited with the
// signed trade value, so sells credit cash. No borrowing check is applied:
// cash may go negative if the caller's sizing permits it.
func (p *Portfolio) ExecuteTrade(symbol string, quantity int64, price float64, timestamp time.Time) TradeRecord {
	executedPrice := price * (1 - p.Slippage)
	if quantity > 0 {
		executedPrice = price * (1 + p.Slippage)
	}

	commission := math.Abs(float64(quantity)*executedPrice) * p.CommissionRate

	p.position(symbol).Update(quantity, executedPrice, commission)

	p.Cash -= float64(quantity)*executedPrice + commission

	record := TradeRecord{
		Timestamp:  timestamp,
		Symbol:     symbol,
		Quantity:   quantity,
		Price:      executedPrice,
		Commission: commission,
		Cash:       p.Cash,
	}
	p.trades = append(p.trades, record)
	return record
}

// TotalValue returns cash plus the value of all positions marked at
// currentPrices. A symbol with no current quote is valued at its own
// average price.
func (p *Portfolio) TotalValue(currentPrices map[string]float64) float64 {
	total := p.Cash
	for _, pos := range p.positions {
		price, ok := currentPrices[pos.Symbol]
		if !ok {
			price = pos.AvgPrice
		}
		total += float64(pos.Quantity) * price
	}
	return total
}

// PerformanceSummary summarizes the portfolio after a run. With no trades
// it returns a zeroed summary carrying only the (untouched) cash balance.
func (p *Portfolio) PerformanceSummary() Summary {
	if len(p.trades) == 0 {
		return Summary{EndingCash: p.Cash}
	}

	var totalCommission float64
	for _, t := range p.trades {
		totalCommission += t.Commission
	}

	var realized float64
	for _, pos := range p.positions {
		realized += pos.RealizedPnL
	}

	return Summary{
		TotalTrades:     len(p.trades),
		TotalCommission: totalCommission,
		RealizedPnL:     realized,
		EndingCash:      p.Cash,
		ReturnPct:       (p.Cash - p.InitialCapital) / p.InitialCapital * 100,
	}
}

// Trades returns a copy of the trade log in execution order.
func (p *Portfolio) Trades() []TradeRecord {
	out := make([]TradeRecord, len(p.trades))
	copy(out, p.trades)
	return out
}

// Positions returns a copy of every ledger entry, including flat ones.
func (p *Portfolio) Positions() []Position {
	out := make([]Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, *pos)
	}
	return out
}
