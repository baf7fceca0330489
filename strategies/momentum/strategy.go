// Package momentum implements a moving-average crossover strategy: buy
// when the fast average crosses above the slow one, sell when it
// crosses below.
package momentum

import (
	"errors"
	"fmt"
	"math"

	"quantbt/types"
)

var ErrBadWindows = errors.New("fast window must be shorter than slow window")

type Strategy struct {
	fast     int
	slow     int
	baseSize float64
}

func New(fast, slow int, baseSize float64) (*Strategy, error) {
	if fast < 1 || fast >= slow {
		return nil, fmt.Errorf("%w: fast %d, slow %d", ErrBadWindows, fast, slow)
	}
	if baseSize <= 0 {
		return nil, errors.New("base size must be positive")
	}
	return &Strategy{fast: fast, slow: slow, baseSize: baseSize}, nil
}

func (s *Strategy) Analyze(history []types.Candle, sentiment *types.SentimentSnapshot) (types.Signal, error) {
	// a cross needs the averages at this tick and the previous one
	if len(history) < s.slow+1 {
		return types.Signal{Action: types.ActionHold}, nil
	}

	closes := types.CloseSeries(history)
	last := len(closes) - 1

	fastNow := sma(closes, s.fast, last)
	slowNow := sma(closes, s.slow, last)
	fastPrev := sma(closes, s.fast, last-1)
	slowPrev := sma(closes, s.slow, last-1)

	var action types.SignalAction
	switch {
	case fastPrev <= slowPrev && fastNow > slowNow:
		action = types.ActionBuy
	case fastPrev >= slowPrev && fastNow < slowNow:
		action = types.ActionSell
	default:
		return types.Signal{Action: types.ActionHold}, nil
	}

	confidence := crossStrength(fastNow, slowNow)
	if sentiment != nil && sentiment.Samples > 0 {
		if opposes(action, sentiment.Score) {
			return types.Signal{Action: types.ActionHold, Reason: "crossover vetoed by sentiment"}, nil
		}
		confidence = math.Min(1, confidence*(1+0.25*math.Abs(sentiment.Score)))
	}

	return types.Signal{
		Action:     action,
		Confidence: confidence,
		Size:       s.baseSize * confidence,
		Reason:     fmt.Sprintf("sma(%d)/sma(%d) crossover", s.fast, s.slow),
	}, nil
}

// crossStrength maps the relative spread between the averages to a
// confidence in (0, 1]. A 2% spread or more counts as full conviction.
func crossStrength(fast, slow float64) float64 {
	if slow == 0 {
		return 0
	}
	spread := math.Abs(fast-slow) / slow
	c := spread / 0.02
	if c > 1 {
		return 1
	}
	if c < 0.1 {
		return 0.1
	}
	return c
}

// opposes reports a strong sentiment reading against the signal's
// direction.
func opposes(action types.SignalAction, score float64) bool {
	if action == types.ActionBuy {
		return score < -0.5
	}
	return score > 0.5
}

// sma is the mean of the n closes ending at index end, inclusive.
func sma(closes []float64, n, end int) float64 {
	sum := 0.0
	for i := end - n + 1; i <= end; i++ {
		sum += closes[i]
	}
	return sum / float64(n)
}
