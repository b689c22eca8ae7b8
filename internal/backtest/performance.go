package backtest

import "math"

const (
	tradingDaysPerYear = 252
	riskFreeRate       = 0.04 // annual
)

// PerformanceMetrics are return and risk statistics computed from an equity
// curve. All percentages are in percent units (e.g. 12.5 for 12.5%).
type PerformanceMetrics struct {
	TotalReturn      float64
	AnnualizedReturn float64
	SharpeRatio      float64
	MaxDrawdown      float64
	Volatility       float64
	WinRate          float64
}

// TradeMetrics are trade-quality statistics computed from a trade log.
type TradeMetrics struct {
	AvgTradeReturn   float64 // percent
	AvgTradeDuration float64 // hours
	ProfitFactor     float64
	AvgCommission    float64
}

// CalculatePerformanceMetrics derives metrics from an equity curve. Fewer
// than two observations is a valid (if uninteresting) outcome and yields
// all zeros rather than an error. Daily observations are assumed for the
// annualization constants.
func CalculatePerformanceMetrics(values []PortfolioValue) PerformanceMetrics {
	if len(values) < 2 {
		return PerformanceMetrics{}
	}

	// Period-over-period simple returns; the first undefined value drops.
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		returns = append(returns, values[i].Value/values[i-1].Value-1)
	}

	totalReturn := (values[len(values)-1].Value/values[0].Value - 1) * 100

	// CAGR over elapsed calendar days.
	days := int(values[len(values)-1].Timestamp.Sub(values[0].Timestamp).Hours() / 24)
	var annualized float64
	if days > 0 {
		annualized = (math.Pow(1+totalReturn/100, 365/float64(days)) - 1) * 100
	}

	std := stdev(returns)
	volatility := std * math.Sqrt(tradingDaysPerYear) * 100

	var sharpe float64
	if std > 0 {
		excess := make([]float64, len(returns))
		for i, r := range returns {
			excess[i] = r - riskFreeRate/tradingDaysPerYear
		}
		sharpe = math.Sqrt(tradingDaysPerYear) * mean(excess) / std
	}

	// Max drawdown over the cumulative growth of the return series.
	cumulative := 1.0
	peak := math.Inf(-1)
	minDrawdown := 0.0
	for _, r := range returns {
		cumulative *= 1 + r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := (cumulative - peak) / peak; dd < minDrawdown {
			minDrawdown = dd
		}
	}
	maxDrawdown := math.Abs(minDrawdown) * 100

	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	winRate := float64(wins) / float64(len(returns)) * 100

	return PerformanceMetrics{
		TotalReturn:      totalReturn,
		AnnualizedReturn: annualized,
		SharpeRatio:      sharpe,
		MaxDrawdown:      maxDrawdown,
		Volatility:       volatility,
		WinRate:          winRate,
	}
}

// CalculateTradeMetrics derives trade-quality statistics from a trade log.
// An empty log yields all zeros. Trade returns are the percent changes
// between consecutive fill prices within each symbol, not matched
// entry/exit round trips.
func CalculateTradeMetrics(trades []TradeRecord) TradeMetrics {
	if len(trades) == 0 {
		return TradeMetrics{}
	}

	// Group by symbol, preserving execution order within each group.
	bySymbol := make(map[string][]TradeRecord)
	for _, t := range trades {
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], t)
	}

	var tradeReturns []float64
	var durations []float64
	for _, group := range bySymbol {
		for i := 1; i < len(group); i++ {
			tradeReturns = append(tradeReturns, group[i].Price/group[i-1].Price-1)
		}

		first, last := group[0].Timestamp, group[0].Timestamp
		for _, t := range group[1:] {
			if t.Timestamp.Before(first) {
				first = t.Timestamp
			}
			if t.Timestamp.After(last) {
				last = t.Timestamp
			}
		}
		durations = append(durations, last.Sub(first).Hours())
	}

	var avgTradeReturn float64
	if len(tradeReturns) > 0 {
		avgTradeReturn = mean(tradeReturns) * 100
	}

	var gains, losses float64
	for _, r := range tradeReturns {
		if r > 0 {
			gains += r
		} else if r < 0 {
			losses += -r
		}
	}
	profitFactor := math.Inf(1)
	if losses != 0 {
		profitFactor = gains / losses
	}

	var totalCommission float64
	for _, t := range trades {
		totalCommission += t.Commission
	}

	return TradeMetrics{
		AvgTradeReturn:   avgTradeReturn,
		AvgTradeDuration: mean(durations),
		ProfitFactor:     profitFactor,
		AvgCommission:    totalCommission / float64(len(trades)),
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the sample standard deviation; fewer than two samples yields 0.
func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
