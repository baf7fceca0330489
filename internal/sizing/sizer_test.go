package sizing

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantbt/types"
)

func testSizer() *Sizer {
	return New(Config{
		VolatilityLookback: 20,
		ScaleFactor:        1.0,
		MinPositionSize:    0.01,
		MaxPositionSize:    1000,
	})
}

func TestVolatilityAdjustedSize_Standard(t *testing.T) {
	s := testSizer()

	// flat prices: zero volatility must not divide by zero and must
	// leave the base size untouched
	flat := constSeries(100, 30)
	got, err := s.VolatilityAdjustedSize(flat, 10, MethodStandard)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got, 1e-12)

	// volatile prices shrink the size
	noisy := alternatingSeries(100, 0.05, 30)
	got, err = s.VolatilityAdjustedSize(noisy, 10, MethodStandard)
	require.NoError(t, err)
	assert.Less(t, got, 10.0)
	assert.GreaterOrEqual(t, got, s.cfg.MinPositionSize)
}

func TestVolatilityAdjustedSize_Errors(t *testing.T) {
	s := testSizer()

	_, err := s.VolatilityAdjustedSize([]float64{100}, 10, MethodStandard)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = s.VolatilityAdjustedSize(constSeries(100, 30), 10, Method("ewma"))
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestAdjustForRegime(t *testing.T) {
	s := testSizer()

	tests := []struct {
		name   string
		regime types.MarketRegime
		want   float64
	}{
		{
			name: "high volatility sideways normal",
			regime: types.MarketRegime{
				Volatility: types.HighVolatility,
				Trend:      types.Sideways,
				Volume:     types.NormalVolume,
			},
			want: 800, // 1000 * 0.8 * 1.0 * 1.0
		},
		{
			name: "everything favorable clamps at max",
			regime: types.MarketRegime{
				Volatility: types.LowVolatility,
				Trend:      types.StrongUptrend,
				Volume:     types.HighVolume,
			},
			want: 1000, // 1584 pre-clamp
		},
		{
			name:   "unknown buckets default to 1.0",
			regime: types.MarketRegime{Volatility: "weird", Trend: "weird", Volume: "weird"},
			want:   1000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.AdjustForRegime(1000, tt.regime), 1e-9)
		})
	}
}

func TestAdjustForCorrelation(t *testing.T) {
	s := testSizer()

	assert.Equal(t, 100.0, s.AdjustForCorrelation(100, nil))
	assert.Equal(t, 100.0, s.AdjustForCorrelation(100, map[string]float64{"ETH": 0.4}))

	// 0.7 correlation -> factor 1-(0.7-0.5) = 0.8
	assert.InDelta(t, 80.0, s.AdjustForCorrelation(100, map[string]float64{"ETH": 0.7}), 1e-12)

	// negative correlation counts by magnitude
	assert.InDelta(t, 80.0, s.AdjustForCorrelation(100, map[string]float64{"ETH": -0.7}), 1e-12)

	// perfect correlation floors at half
	assert.InDelta(t, 50.0, s.AdjustForCorrelation(100, map[string]float64{"ETH": 1.0}), 1e-12)
}

func TestKellyFraction(t *testing.T) {
	s := testSizer()

	// degenerate inputs
	assert.Zero(t, s.KellyFraction(0, 10, 5))
	assert.Zero(t, s.KellyFraction(1, 10, 5))
	assert.Zero(t, s.KellyFraction(0.6, 10, 0))
	assert.Zero(t, s.KellyFraction(0.6, 0, 5))

	// f = 0.6 - 0.4/(10/5) = 0.4
	assert.InDelta(t, 0.4, s.KellyFraction(0.6, 10, 5), 1e-12)

	// negative edge floors at zero
	assert.Zero(t, s.KellyFraction(0.3, 5, 10))
}

func TestOptimalSize_AlwaysWithinBounds(t *testing.T) {
	s := New(Config{
		VolatilityLookback: 20,
		ScaleFactor:        2.0,
		MinPositionSize:    0.5,
		MaxPositionSize:    5.0,
	})

	regimes := []types.MarketRegime{
		{Volatility: types.LowVolatility, Trend: types.StrongUptrend, Volume: types.HighVolume},
		{Volatility: types.HighVolatility, Trend: types.StrongDowntrend, Volume: types.LowVolume},
		{},
	}
	correlations := []map[string]float64{nil, {"ETH": 0.99}, {"ETH": -0.2}}
	perfs := []*PerformanceMetrics{
		nil,
		{WinRate: 0, AvgWin: 0, AvgLoss: 0},
		{WinRate: 1, AvgWin: 100, AvgLoss: 0},
		{WinRate: 0.7, AvgWin: 30, AvgLoss: 10},
	}
	bases := []float64{0, 0.001, 1, 1000}
	histories := [][]float64{constSeries(100, 30), alternatingSeries(100, 0.1, 40)}

	for _, closes := range histories {
		for _, regime := range regimes {
			for _, corr := range correlations {
				for _, perf := range perfs {
					for _, base := range bases {
						got, err := s.OptimalSize(closes, base, MethodStandard, regime, corr, perf)
						require.NoError(t, err)
						assert.GreaterOrEqual(t, got, 0.5)
						assert.LessOrEqual(t, got, 5.0)
						assert.False(t, math.IsNaN(got))
					}
				}
			}
		}
	}
}

func TestOptimalSize_GarchFitFailureSurfaces(t *testing.T) {
	s := testSizer()

	_, err := s.OptimalSize(constSeries(100, 5), 10, MethodGarch, types.MarketRegime{}, nil, nil)
	require.Error(t, err)

	var modelErr *ModelError
	require.True(t, errors.As(err, &modelErr))
	assert.Equal(t, MethodGarch, modelErr.Method)
	assert.ErrorIs(t, err, ErrModelFit)
}

func constSeries(price float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

// alternatingSeries moves up and down by amp each step.
func alternatingSeries(price, amp float64, n int) []float64 {
	out := make([]float64, n)
	cur := price
	for i := range out {
		out[i] = cur
		if i%2 == 0 {
			cur *= 1 + amp
		} else {
			cur *= 1 - amp
		}
	}
	return out
}
