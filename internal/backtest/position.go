// Package backtest implements the simulation core: a ledger-accurate
// portfolio, a time-stepped replay engine, and the performance statistics
// derived from a completed run.
package backtest

// Position is the per-symbol ledger entry of a Portfolio. Quantity is
// signed: positive for long, negative for short. AvgPrice is meaningful
// only while Quantity != 0; it is left stale when the position flattens.
type Position struct {
	Symbol      string
	Quantity    int64
	AvgPrice    float64
	RealizedPnL float64
}

// Update applies a fill of delta shares at price to the position.
// Commission is debited from realized P&L unconditionally.
//
// A fill in the opposite direction realizes P&L on the closed quantity.
// When the position remains open afterwards, whether reduced or flipped,
// the cost basis resets to the fill price.
func (p *Position) Update(delta int64, price, commission float64) {
	switch {
	case delta == 0:
		// No-op fill; still pay the commission below.

	case p.Quantity == 0:
		p.Quantity = delta
		p.AvgPrice = price

	case (p.Quantity > 0) == (delta > 0):
		// Adding in the same direction: weighted-average cost basis.
		p.AvgPrice = (p.AvgPrice*float64(p.Quantity) + price*float64(delta)) /
			float64(p.Quantity+delta)
		p.Quantity += delta

	default:
		// Reducing, closing, or flipping.
		closeQty := abs64(p.Quantity)
		if d := abs64(delta); d < closeQty {
			closeQty = d
		}
		direction := 1.0
		if p.Quantity < 0 {
			direction = -1.0
		}
		p.RealizedPnL += (price - p.AvgPrice) * float64(closeQty) * direction
		p.Quantity += delta
		if p.Quantity != 0 {
			p.AvgPrice = price
		}
	}

	p.RealizedPnL -= commission
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
