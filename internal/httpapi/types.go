// Package httpapi provides an HTTP REST API over stored backtest runs and
// the order journal, serving results as JSON.
package httpapi

import (
	"math"
	"time"

	"quiver/internal/backtest"
	"quiver/internal/store"
)

// RunJSON is the JSON representation of a run's metadata.
type RunJSON struct {
	ID             string  `json:"id"`
	Strategy       string  `json:"strategy"`
	Market         string  `json:"market"`
	StartDate      string  `json:"startDate"`
	EndDate        string  `json:"endDate"`
	InitialCapital float64 `json:"initialCapital"`
	CreatedAt      string  `json:"createdAt"`
}

// PerformanceJSON mirrors backtest.PerformanceMetrics.
type PerformanceJSON struct {
	TotalReturn      float64 `json:"totalReturn"`
	AnnualizedReturn float64 `json:"annualizedReturn"`
	SharpeRatio      float64 `json:"sharpeRatio"`
	MaxDrawdown      float64 `json:"maxDrawdown"`
	Volatility       float64 `json:"volatility"`
	WinRate          float64 `json:"winRate"`
}

// TradeStatsJSON mirrors backtest.TradeMetrics. A +Inf profit factor
// serializes as null via the pointer.
type TradeStatsJSON struct {
	AvgTradeReturn   float64  `json:"avgTradeReturn"`
	AvgTradeDuration float64  `json:"avgTradeDurationHours"`
	ProfitFactor     *float64 `json:"profitFactor"`
	AvgCommission    float64  `json:"avgCommission"`
}

// SummaryJSON mirrors backtest.Summary.
type SummaryJSON struct {
	TotalTrades     int     `json:"totalTrades"`
	TotalCommission float64 `json:"totalCommission"`
	RealizedPnL     float64 `json:"realizedPnl"`
	EndingCash      float64 `json:"endingCash"`
	ReturnPct       float64 `json:"returnPct"`
}

// SignalJSON is one executed signal.
type SignalJSON struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Confidence float64 `json:"confidence"`
	Timestamp  string  `json:"timestamp"`
	Price      float64 `json:"price"`
	Quantity   int64   `json:"quantity"`
}

// TradeJSON is one ledger entry.
type TradeJSON struct {
	Timestamp  string  `json:"timestamp"`
	Symbol     string  `json:"symbol"`
	Quantity   int64   `json:"quantity"`
	Price      float64 `json:"price"`
	Commission float64 `json:"commission"`
	Cash       float64 `json:"cash"`
}

// ValueJSON is one equity-curve point.
type ValueJSON struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// RunDetailResponse is the full result bundle for one run.
type RunDetailResponse struct {
	Run         RunJSON         `json:"run"`
	Performance PerformanceJSON `json:"performance"`
	TradeStats  TradeStatsJSON  `json:"tradeStats"`
	Summary     SummaryJSON     `json:"summary"`
	Signals     []SignalJSON    `json:"signals"`
}

// RunListResponse lists run metadata, newest first.
type RunListResponse struct {
	Runs []RunJSON `json:"runs"`
}

// ValuesResponse is the equity curve for one run.
type ValuesResponse struct {
	RunID  string      `json:"runId"`
	Values []ValueJSON `json:"values"`
}

// TradesResponse is the trade ledger for one run.
type TradesResponse struct {
	RunID  string      `json:"runId"`
	Trades []TradeJSON `json:"trades"`
}

// OrderJSON is one journaled order.
type OrderJSON struct {
	ID             string  `json:"id"`
	Symbol         string  `json:"symbol"`
	Side           string  `json:"side"`
	Type           string  `json:"type"`
	Qty            float64 `json:"qty"`
	LimitPrice     float64 `json:"limitPrice,omitempty"`
	FilledQty      float64 `json:"filledQty"`
	FilledAvgPrice float64 `json:"filledAvgPrice"`
	Status         string  `json:"status"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

// OrdersResponse lists journaled orders, newest first.
type OrdersResponse struct {
	Orders []OrderJSON `json:"orders"`
}

// StrategiesResponse lists registered strategy names.
type StrategiesResponse struct {
	Strategies []string `json:"strategies"`
}

func convertRunMeta(m store.RunMeta) RunJSON {
	return RunJSON{
		ID:             m.ID,
		Strategy:       m.Strategy,
		Market:         string(m.Market),
		StartDate:      m.StartDate.Format("2006-01-02"),
		EndDate:        m.EndDate.Format("2006-01-02"),
		InitialCapital: m.InitialCapital,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339),
	}
}

func convertResult(meta store.RunMeta, r *backtest.Result) RunDetailResponse {
	resp := RunDetailResponse{
		Run: convertRunMeta(meta),
		Performance: PerformanceJSON{
			TotalReturn:      r.Performance.TotalReturn,
			AnnualizedReturn: r.Performance.AnnualizedReturn,
			SharpeRatio:      r.Performance.SharpeRatio,
			MaxDrawdown:      r.Performance.MaxDrawdown,
			Volatility:       r.Performance.Volatility,
			WinRate:          r.Performance.WinRate,
		},
		TradeStats: TradeStatsJSON{
			AvgTradeReturn:   r.TradeStats.AvgTradeReturn,
			AvgTradeDuration: r.TradeStats.AvgTradeDuration,
			AvgCommission:    r.TradeStats.AvgCommission,
		},
		Summary: SummaryJSON{
			TotalTrades:     r.Summary.TotalTrades,
			TotalCommission: r.Summary.TotalCommission,
			RealizedPnL:     r.Summary.RealizedPnL,
			EndingCash:      r.Summary.EndingCash,
			ReturnPct:       r.Summary.ReturnPct,
		},
		Signals: make([]SignalJSON, 0, len(r.Signals)),
	}

	// JSON has no +Inf; a lossless run serializes profitFactor as null.
	pf := r.TradeStats.ProfitFactor
	if !math.IsInf(pf, 0) {
		resp.TradeStats.ProfitFactor = &pf
	}

	for _, s := range r.Signals {
		resp.Signals = append(resp.Signals, SignalJSON{
			Symbol:     s.Symbol,
			Side:       string(s.Side),
			Confidence: s.Confidence,
			Timestamp:  s.Signal.Timestamp.Format(time.RFC3339),
			Price:      s.Price,
			Quantity:   s.Quantity,
		})
	}
	return resp
}
