// Package sizing turns a strategy's raw size suggestion into a bounded,
// risk-adjusted quantity. Every adjustment clamps against the same
// configured bounds, so the final result stays inside them no matter
// how many adjustments fire.
package sizing

import (
	"errors"
	"fmt"
	"math"

	"quantbt/internal/metrics"
	"quantbt/types"
)

type Method string

const (
	MethodStandard Method = "standard"
	MethodGarch    Method = "garch"
)

var (
	ErrUnknownMethod    = errors.New("unknown volatility method")
	ErrInsufficientData = errors.New("not enough history to estimate volatility")
)

const tradingDaysPerYear = 252

type Config struct {
	VolatilityLookback int
	ScaleFactor        float64
	MinPositionSize    float64
	MaxPositionSize    float64
}

// PerformanceMetrics feeds the Kelly blend. WinRate is a fraction in
// [0,1]; AvgWin and AvgLoss are magnitudes per trade.
type PerformanceMetrics struct {
	WinRate float64
	AvgWin  float64
	AvgLoss float64
}

type Sizer struct {
	cfg Config
}

func New(cfg Config) *Sizer {
	if cfg.VolatilityLookback <= 0 {
		cfg.VolatilityLookback = 20
	}
	if cfg.ScaleFactor <= 0 {
		cfg.ScaleFactor = 1.0
	}
	if cfg.MaxPositionSize <= 0 {
		cfg.MaxPositionSize = 1.0
	}
	if cfg.MinPositionSize < 0 {
		cfg.MinPositionSize = 0
	}
	return &Sizer{cfg: cfg}
}

// VolatilityAdjustedSize scales base inversely with estimated
// volatility: base * 1/(1 + vol*scale). The denominator keeps a
// floor of 1, so zero volatility can never divide by zero.
func (s *Sizer) VolatilityAdjustedSize(closes []float64, base float64, method Method) (float64, error) {
	vol, err := s.estimateVolatility(closes, method)
	if err != nil {
		return 0, err
	}
	scalar := 1 / (1 + vol*s.cfg.ScaleFactor)
	return s.clamp(base * scalar), nil
}

func (s *Sizer) estimateVolatility(closes []float64, method Method) (float64, error) {
	returns := pctChanges(closes)
	switch method {
	case MethodStandard:
		return s.standardVolatility(returns)
	case MethodGarch:
		variance, err := garchForecast(returns)
		if err != nil {
			return 0, &ModelError{Method: method, Observations: len(returns), Err: err}
		}
		return math.Sqrt(variance * tradingDaysPerYear), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

// standardVolatility is the annualized sample standard deviation of
// the trailing lookback window of returns.
func (s *Sizer) standardVolatility(returns []float64) (float64, error) {
	if len(returns) < 2 {
		return 0, fmt.Errorf("%w: %d returns", ErrInsufficientData, len(returns))
	}
	window := returns
	if len(window) > s.cfg.VolatilityLookback {
		window = window[len(window)-s.cfg.VolatilityLookback:]
	}
	return metrics.StdDev(window) * math.Sqrt(tradingDaysPerYear), nil
}

// AdjustForRegime multiplies by one factor per regime axis. Unknown
// bucket values pass through at 1.0.
func (s *Sizer) AdjustForRegime(size float64, regime types.MarketRegime) float64 {
	switch regime.Volatility {
	case types.LowVolatility:
		size *= 1.2
	case types.MediumVolatility:
		size *= 1.0
	case types.HighVolatility:
		size *= 0.8
	}

	switch regime.Trend {
	case types.StrongUptrend:
		size *= 1.2
	case types.StrongDowntrend:
		size *= 0.8
	case types.Sideways:
		size *= 1.0
	}

	switch regime.Volume {
	case types.HighVolume:
		size *= 1.1
	case types.NormalVolume:
		size *= 1.0
	case types.LowVolume:
		size *= 0.9
	}

	return s.clamp(size)
}

// AdjustForCorrelation damps the size when the candidate is highly
// correlated with symbols already held. The reduction is linear past
// |corr| 0.5 and never cuts more than half.
func (s *Sizer) AdjustForCorrelation(size float64, correlations map[string]float64) float64 {
	if len(correlations) == 0 {
		return size
	}
	maxCorr := 0.0
	for _, c := range correlations {
		if a := math.Abs(c); a > maxCorr {
			maxCorr = a
		}
	}
	if maxCorr > 0.5 {
		factor := 1 - (maxCorr - 0.5)
		if factor < 0.5 {
			factor = 0.5
		}
		size *= factor
	}
	return size
}

// KellyFraction is the classic Kelly bet size f = w - (1-w)/b with
// b = avgWin/|avgLoss|. Degenerate inputs yield 0, and the result is
// clamped to [0, MaxPositionSize].
func (s *Sizer) KellyFraction(winRate, avgWin, avgLoss float64) float64 {
	if winRate <= 0 || winRate >= 1 || avgLoss == 0 {
		return 0
	}
	b := avgWin / math.Abs(avgLoss)
	if b <= 0 {
		return 0
	}
	k := winRate - (1-winRate)/b
	if k < 0 {
		return 0
	}
	if k > s.cfg.MaxPositionSize {
		return s.cfg.MaxPositionSize
	}
	return k
}

// OptimalSize composes all adjustments: volatility scaling, regime
// multipliers, correlation damping, then an optional 50/50 blend with
// the Kelly fraction, and a final clamp.
func (s *Sizer) OptimalSize(
	closes []float64,
	base float64,
	method Method,
	regime types.MarketRegime,
	correlations map[string]float64,
	perf *PerformanceMetrics,
) (float64, error) {
	size, err := s.VolatilityAdjustedSize(closes, base, method)
	if err != nil {
		return 0, err
	}

	size = s.AdjustForRegime(size, regime)
	size = s.AdjustForCorrelation(size, correlations)

	if perf != nil {
		kelly := s.KellyFraction(perf.WinRate, perf.AvgWin, perf.AvgLoss)
		size = (size + kelly) / 2
	}

	return s.clamp(size), nil
}

func (s *Sizer) clamp(size float64) float64 {
	if size > s.cfg.MaxPositionSize {
		return s.cfg.MaxPositionSize
	}
	if size < s.cfg.MinPositionSize {
		return s.cfg.MinPositionSize
	}
	return size
}

func pctChanges(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}
