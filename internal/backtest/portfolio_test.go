package backtest

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func testPortfolio() *Portfolio {
	return NewPortfolio(100000, 0.002, 0.0005)
}

func TestPortfolioInitialState(t *testing.T) {
	p := testPortfolio()

	if p.Cash != 100000 {
		t.Errorf("Cash = %v, want 100000", p.Cash)
	}
	if len(p.Positions()) != 0 {
		t.Errorf("Positions() has %d entries, want 0", len(p.Positions()))
	}
	if len(p.Trades()) != 0 {
		t.Errorf("Trades() has %d entries, want 0", len(p.Trades()))
	}
}

func TestPortfolioExecuteTrade(t *testing.T) {
	p := testPortfolio()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := p.ExecuteTrade("TEST", 100, 10.0, ts)

	// Slippage moves the buy price up: 10.0 * 1.0005 = 10.005.
	if math.Abs(rec.Price-10.005) > 1e-9 {
		t.Errorf("executed price = %v, want 10.005", rec.Price)
	}
	// Commission: |100 * 10.005| * 0.002 = 2.001.
	if math.Abs(rec.Commission-2.001) > 1e-9 {
		t.Errorf("commission = %v, want 2.001", rec.Commission)
	}
	// Cash: 100000 - (1000.5 + 2.001) = 98997.499.
	if math.Abs(p.Cash-98997.499) > 1e-6 {
		t.Errorf("Cash = %v, want 98997.499", p.Cash)
	}
	if rec.Cash != p.Cash {
		t.Errorf("record Cash = %v, want post-trade balance %v", rec.Cash, p.Cash)
	}

	positions := p.Positions()
	if len(positions) != 1 {
		t.Fatalf("Positions() has %d entries, want 1", len(positions))
	}
	if positions[0].Quantity != 100 {
		t.Errorf("position quantity = %d, want 100", positions[0].Quantity)
	}
	if positions[0].AvgPrice <= 10.0 {
		t.Errorf("position AvgPrice = %v, want > 10.0 (slippage)", positions[0].AvgPrice)
	}
}

func TestPortfolioSellSlippageAndCredit(t *testing.T) {
	p := testPortfolio()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := p.ExecuteTrade("TEST", -100, 10.0, ts)

	// Slippage moves the sell price down: 10.0 * 0.9995 = 9.995.
	if math.Abs(rec.Price-9.995) > 1e-9 {
		t.Errorf("executed price = %v, want 9.995", rec.Price)
	}
	// Sell proceeds credit cash (minus commission).
	if p.Cash <= 100000 {
		t.Errorf("Cash = %v, want > 100000 after sell", p.Cash)
	}
}

func TestPortfolioCashConservation(t *testing.T) {
	p := testPortfolio()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p.ExecuteTrade("AAA", 100, 10.0, ts)
	p.ExecuteTrade("BBB", 50, 20.0, ts.Add(time.Hour))
	p.ExecuteTrade("AAA", -30, 12.0, ts.Add(2*time.Hour))
	p.ExecuteTrade("BBB", -50, 19.0, ts.Add(3*time.Hour))
	p.ExecuteTrade("AAA", -100, 11.0, ts.Add(4*time.Hour))

	var spent float64
	for _, tr := range p.Trades() {
		spent += float64(tr.Quantity)*tr.Price + tr.Commission
	}
	if math.Abs(p.Cash-(p.InitialCapital-spent)) > 1e-6 {
		t.Errorf("cash conservation violated: Cash = %v, initial - Σ(qty·price+comm) = %v",
			p.Cash, p.InitialCapital-spent)
	}
}

func TestPortfolioTotalValue(t *testing.T) {
	p := testPortfolio()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p.ExecuteTrade("TEST1", 100, 10.0, ts)
	p.ExecuteTrade("TEST2", 50, 20.0, ts)

	prices := map[string]float64{"TEST1": 12.0, "TEST2": 22.0}
	total := p.TotalValue(prices)

	// TEST1 = 100 * 12 = 1200, TEST2 = 50 * 22 = 1100.
	want := p.Cash + 1200 + 1100
	if math.Abs(total-want) > 1e-6 {
		t.Errorf("TotalValue = %v, want %v", total, want)
	}
}

func TestPortfolioTotalValueAvgPriceFallback(t *testing.T) {
	p := testPortfolio()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p.ExecuteTrade("TEST", 100, 10.0, ts)

	// No quote for TEST: position marks at its own average price.
	total := p.TotalValue(map[string]float64{})
	pos := p.Positions()[0]
	want := p.Cash + float64(pos.Quantity)*pos.AvgPrice
	if math.Abs(total-want) > 1e-6 {
		t.Errorf("TotalValue = %v, want %v (avg-price fallback)", total, want)
	}
}

func TestPortfolioSummaryEmpty(t *testing.T) {
	p := testPortfolio()
	s := p.PerformanceSummary()

	if s.TotalTrades != 0 || s.TotalCommission != 0 || s.RealizedPnL != 0 || s.ReturnPct != 0 {
		t.Errorf("summary of empty portfolio = %+v, want zeroed", s)
	}
	if s.EndingCash != 100000 {
		t.Errorf("EndingCash = %v, want 100000", s.EndingCash)
	}
}

func TestPortfolioSummary(t *testing.T) {
	p := testPortfolio()
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p.ExecuteTrade("TEST", 100, 10.0, ts)
	p.ExecuteTrade("TEST", -100, 15.0, ts.Add(time.Hour))

	s := p.PerformanceSummary()
	if s.TotalTrades != 2 {
		t.Errorf("TotalTrades = %d, want 2", s.TotalTrades)
	}
	if s.TotalCommission <= 0 {
		t.Errorf("TotalCommission = %v, want > 0", s.TotalCommission)
	}
	if s.RealizedPnL <= 0 {
		t.Errorf("RealizedPnL = %v, want > 0 (bought 10, sold 15)", s.RealizedPnL)
	}
	if s.ReturnPct <= 0 {
		t.Errorf("ReturnPct = %v, want > 0", s.ReturnPct)
	}
}

func TestPortfolioDeterminism(t *testing.T) {
	run := func() []TradeRecord {
		p := testPortfolio()
		ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		p.ExecuteTrade("AAA", 100, 10.0, ts)
		p.ExecuteTrade("BBB", -40, 25.0, ts.Add(time.Hour))
		p.ExecuteTrade("AAA", -60, 11.5, ts.Add(2*time.Hour))
		return p.Trades()
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical replays diverged:\n  first  %+v\n  second %+v", first, second)
	}
}

func TestPortfolioRealizedPnLMonotonicity(t *testing.T) {
	p := NewPortfolio(100000, 0, 0) // no commission, isolate price P&L
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	p.ExecuteTrade("TEST", 100, 10.0, ts)
	p.ExecuteTrade("TEST", 50, 12.0, ts)
	p.ExecuteTrade("TEST", 25, 14.0, ts)

	// Same-direction adds never move realized P&L.
	if got := p.Positions()[0].RealizedPnL; got != 0 {
		t.Errorf("RealizedPnL after adds = %v, want 0", got)
	}

	p.ExecuteTrade("TEST", -25, 15.0, ts)
	if got := p.Positions()[0].RealizedPnL; got <= 0 {
		t.Errorf("RealizedPnL after reducing sale = %v, want > 0", got)
	}
}
