package backtest

import (
	"math"
	"testing"
	"time"
)

func dailyValues(start time.Time, vals ...float64) []PortfolioValue {
	out := make([]PortfolioValue, len(vals))
	for i, v := range vals {
		out[i] = PortfolioValue{Timestamp: start.AddDate(0, 0, i), Value: v}
	}
	return out
}

func TestPerformanceMetricsEmpty(t *testing.T) {
	if got := CalculatePerformanceMetrics(nil); got != (PerformanceMetrics{}) {
		t.Errorf("metrics on empty series = %+v, want all zeros", got)
	}

	one := dailyValues(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 100000)
	if got := CalculatePerformanceMetrics(one); got != (PerformanceMetrics{}) {
		t.Errorf("metrics on single point = %+v, want all zeros", got)
	}
}

func TestPerformanceMetricsKnownSeries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	values := dailyValues(start, 100, 102, 101, 103)

	m := CalculatePerformanceMetrics(values)

	if math.Abs(m.TotalReturn-3.0) > 1e-9 {
		t.Errorf("TotalReturn = %v, want 3.0", m.TotalReturn)
	}
	// Two of three periods were positive.
	if math.Abs(m.WinRate-200.0/3.0) > 1e-6 {
		t.Errorf("WinRate = %v, want %v", m.WinRate, 200.0/3.0)
	}
	// Single dip: 102 -> 101, drawdown (1.01-1.02)/1.02.
	wantDD := 0.01 / 1.02 * 100
	if math.Abs(m.MaxDrawdown-wantDD) > 1e-6 {
		t.Errorf("MaxDrawdown = %v, want %v", m.MaxDrawdown, wantDD)
	}
	if m.Volatility <= 0 {
		t.Errorf("Volatility = %v, want > 0", m.Volatility)
	}
	if m.SharpeRatio == 0 {
		t.Error("SharpeRatio = 0, want nonzero for varying returns")
	}
	// 3% over 3 days compounds to an enormous annualized figure.
	if m.AnnualizedReturn <= m.TotalReturn {
		t.Errorf("AnnualizedReturn = %v, want > TotalReturn %v", m.AnnualizedReturn, m.TotalReturn)
	}
}

func TestPerformanceMetricsFlatSeries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	values := dailyValues(start, 100000, 100000, 100000)

	m := CalculatePerformanceMetrics(values)

	if m.TotalReturn != 0 {
		t.Errorf("TotalReturn = %v, want 0", m.TotalReturn)
	}
	if m.SharpeRatio != 0 {
		t.Errorf("SharpeRatio = %v, want 0 on zero-variance returns", m.SharpeRatio)
	}
	if m.Volatility != 0 {
		t.Errorf("Volatility = %v, want 0", m.Volatility)
	}
	if m.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v, want 0", m.MaxDrawdown)
	}
}

func TestPerformanceMetricsNegative(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	values := dailyValues(start, 100, 97, 95, 90)

	m := CalculatePerformanceMetrics(values)

	if m.TotalReturn >= 0 {
		t.Errorf("TotalReturn = %v, want < 0", m.TotalReturn)
	}
	if m.AnnualizedReturn >= 0 {
		t.Errorf("AnnualizedReturn = %v, want < 0", m.AnnualizedReturn)
	}
	if m.SharpeRatio >= 0 {
		t.Errorf("SharpeRatio = %v, want < 0", m.SharpeRatio)
	}
	if m.MaxDrawdown <= 0 {
		t.Errorf("MaxDrawdown = %v, want > 0", m.MaxDrawdown)
	}
	if m.WinRate != 0 {
		t.Errorf("WinRate = %v, want 0", m.WinRate)
	}
}

func TestTradeMetricsEmpty(t *testing.T) {
	if got := CalculateTradeMetrics(nil); got != (TradeMetrics{}) {
		t.Errorf("metrics on empty trade log = %+v, want all zeros", got)
	}
}

func TestTradeMetricsKnownLog(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []TradeRecord{
		{Timestamp: ts, Symbol: "TEST", Quantity: 100, Price: 100.0, Commission: 20.0},
		{Timestamp: ts.AddDate(0, 0, 1), Symbol: "TEST", Quantity: -50, Price: 110.0, Commission: 11.0},
		{Timestamp: ts.AddDate(0, 0, 2), Symbol: "TEST", Quantity: -50, Price: 105.0, Commission: 10.5},
	}

	m := CalculateTradeMetrics(trades)

	// (20 + 11 + 10.5) / 3
	if math.Abs(m.AvgCommission-13.8333) > 0.001 {
		t.Errorf("AvgCommission = %v, want ~13.833", m.AvgCommission)
	}
	// First to last trade spans two days.
	if math.Abs(m.AvgTradeDuration-48.0) > 1e-9 {
		t.Errorf("AvgTradeDuration = %v hours, want 48", m.AvgTradeDuration)
	}
	// Price changes: +10% then -4.5455%; mean is positive.
	wantAvg := (0.10 + (105.0/110.0 - 1)) / 2 * 100
	if math.Abs(m.AvgTradeReturn-wantAvg) > 1e-6 {
		t.Errorf("AvgTradeReturn = %v, want %v", m.AvgTradeReturn, wantAvg)
	}
	// 0.10 / 0.0454545... = 2.2.
	if math.Abs(m.ProfitFactor-2.2) > 1e-6 {
		t.Errorf("ProfitFactor = %v, want 2.2", m.ProfitFactor)
	}
}

func TestTradeMetricsProfitFactorInf(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []TradeRecord{
		{Timestamp: ts, Symbol: "TEST", Quantity: 100, Price: 100.0, Commission: 1.0},
		{Timestamp: ts.AddDate(0, 0, 1), Symbol: "TEST", Quantity: -100, Price: 105.0, Commission: 1.0},
	}

	m := CalculateTradeMetrics(trades)
	if !math.IsInf(m.ProfitFactor, 1) {
		t.Errorf("ProfitFactor = %v, want +Inf with no losing transitions", m.ProfitFactor)
	}
}

func TestTradeMetricsMultiSymbolDurations(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []TradeRecord{
		{Timestamp: ts, Symbol: "AAA", Quantity: 10, Price: 50.0, Commission: 1.0},
		{Timestamp: ts.Add(10 * time.Hour), Symbol: "AAA", Quantity: -10, Price: 51.0, Commission: 1.0},
		{Timestamp: ts, Symbol: "BBB", Quantity: 5, Price: 30.0, Commission: 1.0},
		{Timestamp: ts.Add(20 * time.Hour), Symbol: "BBB", Quantity: -5, Price: 29.0, Commission: 1.0},
	}

	m := CalculateTradeMetrics(trades)
	// Per-symbol spans of 10h and 20h average to 15h.
	if math.Abs(m.AvgTradeDuration-15.0) > 1e-9 {
		t.Errorf("AvgTradeDuration = %v hours, want 15", m.AvgTradeDuration)
	}
}
