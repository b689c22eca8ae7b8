package builtins

import (
	"context"
	"math"

	"quiver/internal/domain"
	"quiver/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*Threshold)(nil)

// Scorer produces a bullishness probability in [0, 1] for a symbol given
// its close-price history, most recent last. A trained model sits behind
// this interface in production; the backtest engine never knows which.
type Scorer interface {
	Score(ctx context.Context, symbol string, closes []float64) (float64, error)
}

// Threshold wraps a Scorer and converts its probability into directional
// signals: buy above buyThreshold, sell below sellThreshold, hold between.
type Threshold struct {
	scorer        Scorer
	buyThreshold  float64
	sellThreshold float64

	closes map[string][]float64
}

// NewThreshold creates a Threshold strategy around the given scorer.
func NewThreshold(scorer Scorer, buyThreshold, sellThreshold float64) *Threshold {
	return &Threshold{
		scorer:        scorer,
		buyThreshold:  buyThreshold,
		sellThreshold: sellThreshold,
		closes:        make(map[string][]float64),
	}
}

// Name returns "model-threshold".
func (t *Threshold) Name() string {
	return "model-threshold"
}

// Init resets the accumulated price history.
func (t *Threshold) Init(_ context.Context) error {
	t.closes = make(map[string][]float64)
	return nil
}

// GenerateSignals scores every symbol in the slice and emits a signal when
// the score clears a threshold. The score itself becomes the signal's
// confidence.
func (t *Threshold) GenerateSignals(ctx context.Context, slice []domain.Bar) ([]domain.Signal, error) {
	var signals []domain.Signal

	for _, b := range slice {
		hist := append(t.closes[b.Symbol], b.Close)
		t.closes[b.Symbol] = hist

		score, err := t.scorer.Score(ctx, b.Symbol, hist)
		if err != nil {
			return nil, err
		}

		var side domain.Side
		switch {
		case score > t.buyThreshold:
			side = domain.SideBuy
		case score < t.sellThreshold:
			side = domain.SideSell
		default:
			continue
		}

		signals = append(signals, domain.Signal{
			Symbol:     b.Symbol,
			Side:       side,
			Confidence: score,
			Timestamp:  b.Timestamp,
		})
	}

	return signals, nil
}

// MomentumScorer is the default Scorer: a logistic squash of the trailing
// window return. It stands in for a trained model and keeps backtests fully
// deterministic.
type MomentumScorer struct {
	Window int     // lookback bars; 10 if zero
	Slope  float64 // logistic steepness; 50 if zero
}

// Score maps the window return r to 1/(1+exp(-slope*r)): 0.5 for flat
// prices, approaching 1 for strong rallies and 0 for strong selloffs.
func (m *MomentumScorer) Score(_ context.Context, _ string, closes []float64) (float64, error) {
	window := m.Window
	if window <= 0 {
		window = 10
	}
	slope := m.Slope
	if slope == 0 {
		slope = 50
	}

	if len(closes) < window {
		return 0.5, nil
	}

	first := closes[len(closes)-window]
	last := closes[len(closes)-1]
	if first == 0 {
		return 0.5, nil
	}
	r := last/first - 1
	return 1 / (1 + math.Exp(-slope*r)), nil
}
