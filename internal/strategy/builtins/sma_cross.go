// Package builtins provides built-in strategy implementations that ship with
// the quiver platform.
package builtins

import (
	"context"

	"quiver/internal/domain"
	"quiver/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy. It
// generates a buy signal when the short-period SMA crosses above the
// long-period SMA, and a sell signal when it crosses below.
type SMACross struct {
	fastPeriod int
	slowPeriod int
	confidence float64

	closes map[string][]float64
}

// NewSMACross creates a new SMACross strategy with the specified fast and
// slow moving average periods. Signals carry the given confidence.
func NewSMACross(fast, slow int, confidence float64) *SMACross {
	return &SMACross{
		fastPeriod: fast,
		slowPeriod: slow,
		confidence: confidence,
		closes:     make(map[string][]float64),
	}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// Init resets the accumulated price history so the strategy can be reused
// across runs.
func (s *SMACross) Init(_ context.Context) error {
	s.closes = make(map[string][]float64)
	return nil
}

// GenerateSignals appends the slice's closes to each symbol's history and
// emits a signal for every symbol whose fast SMA crossed the slow SMA on
// this bar.
func (s *SMACross) GenerateSignals(_ context.Context, slice []domain.Bar) ([]domain.Signal, error) {
	var signals []domain.Signal

	for _, b := range slice {
		hist := append(s.closes[b.Symbol], b.Close)
		s.closes[b.Symbol] = hist

		// A crossover needs the slow SMA on this bar and the previous one.
		if len(hist) < s.slowPeriod+1 {
			continue
		}

		prev := hist[:len(hist)-1]
		prevFast := sma(prev, s.fastPeriod)
		prevSlow := sma(prev, s.slowPeriod)
		currFast := sma(hist, s.fastPeriod)
		currSlow := sma(hist, s.slowPeriod)

		switch {
		case prevFast < prevSlow && currFast > currSlow:
			signals = append(signals, domain.Signal{
				Symbol:     b.Symbol,
				Side:       domain.SideBuy,
				Confidence: s.confidence,
				Timestamp:  b.Timestamp,
			})
		case prevFast > prevSlow && currFast < currSlow:
			signals = append(signals, domain.Signal{
				Symbol:     b.Symbol,
				Side:       domain.SideSell,
				Confidence: s.confidence,
				Timestamp:  b.Timestamp,
			})
		}
	}

	return signals, nil
}

// sma averages the last period values.
func sma(values []float64, period int) float64 {
	window := values[len(values)-period:]
	var sum float64
	for _, v := range window {
		sum += v
	}
	return sum / float64(period)
}
