package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"quantbt/types"
)

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"monotonic up", []float64{100, 110, 120}, 0},
		{"single dip", []float64{100, 120, 90, 130}, 90.0/120.0 - 1},
		{"full wipeout", []float64{100, 0}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDrawdown(tt.equity)
			assert.InDelta(t, tt.want, got, 1e-12)
			assert.LessOrEqual(t, got, 0.0)
			assert.GreaterOrEqual(t, got, -1.0)
		})
	}
}

func TestSharpe(t *testing.T) {
	assert.Equal(t, 0.0, Sharpe(nil, 0.02))
	assert.Equal(t, 0.0, Sharpe([]float64{0.01}, 0.02))
	// constant returns -> zero variance -> 0
	assert.Equal(t, 0.0, Sharpe([]float64{0.01, 0.01, 0.01}, 0.02))

	returns := []float64{0.01, -0.005, 0.02, 0.003}
	got := Sharpe(returns, 0.0)
	std := StdDev(returns)
	want := math.Sqrt(252) * (0.028 / 4) / std
	assert.InDelta(t, want, got, 1e-12)
}

func TestSortino(t *testing.T) {
	assert.Equal(t, Finite(0), Sortino([]float64{0.01}, 0.02))

	// no negative returns -> infinite sentinel, not a float Inf
	r := Sortino([]float64{0.01, 0.02, 0.0}, 0.0)
	assert.True(t, r.Infinite)
	assert.True(t, math.IsInf(r.Float(), 1))

	r = Sortino([]float64{0.05, -0.01, -0.03, 0.02}, 0.0)
	assert.False(t, r.Infinite)
	assert.NotZero(t, r.Value)
}

func TestCalmar(t *testing.T) {
	short := make([]float64, 100)
	assert.Equal(t, Finite(0), Calmar(short, []float64{100, 101}))

	long := make([]float64, 300)
	for i := range long {
		long[i] = 0.001
	}
	// flat equity -> zero drawdown -> infinite sentinel
	assert.True(t, Calmar(long, []float64{100, 100, 100}).Infinite)

	equity := []float64{100, 120, 90, 130}
	got := Calmar(long, equity)
	assert.False(t, got.Infinite)
	want := 0.001 * 252 / math.Abs(90.0/120.0-1)
	assert.InDelta(t, want, got.Value, 1e-12)
}

func TestMonthly(t *testing.T) {
	ts := []time.Time{
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	rets := []float64{0.01, 0.02, -0.01}

	got := Monthly(ts, rets)
	assert.Len(t, got, 2)

	jan := got[0]
	assert.Equal(t, 2024, jan.Year)
	assert.Equal(t, time.January, jan.Month)
	assert.InDelta(t, 0.03, jan.Return, 1e-12)
	assert.InDelta(t, StdDev([]float64{0.01, 0.02}), jan.Volatility, 1e-12)
	assert.InDelta(t, math.Sqrt(12)*0.015/jan.Volatility, jan.Sharpe, 1e-12)

	feb := got[1]
	assert.Equal(t, time.February, feb.Month)
	assert.InDelta(t, -0.01, feb.Return, 1e-12)
	// single observation: no stdev, no sharpe
	assert.Zero(t, feb.Volatility)
	assert.Zero(t, feb.Sharpe)
}

func TestPerSymbol(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	trades := []types.TradeRecord{
		rec("BTC", t0, types.SideTypeBuy, "0"),
		rec("BTC", t0.Add(4*time.Hour), types.SideTypeSell, "50"),
		rec("BTC", t0.Add(5*time.Hour), types.SideTypeBuy, "0"),
		rec("BTC", t0.Add(7*time.Hour), types.SideTypeSell, "-20"),
		rec("ETH", t0, types.SideTypeBuy, "0"),
	}

	got := PerSymbol(trades)

	btc := got["BTC"]
	assert.Equal(t, 4, btc.TotalTrades)
	assert.InDelta(t, 0.25, btc.WinRate, 1e-12) // only the +50 sell counts as a win
	assert.InDelta(t, 30.0, btc.TotalPnL, 1e-12)
	assert.InDelta(t, 7.5, btc.AvgPnL, 1e-12)
	assert.InDelta(t, 50.0, btc.BestTrade, 1e-12)
	assert.InDelta(t, -20.0, btc.WorstTrade, 1e-12)
	assert.Equal(t, 3*time.Hour, btc.AvgHoldingTime)

	eth := got["ETH"]
	assert.Equal(t, 1, eth.TotalTrades)
	assert.Zero(t, eth.AvgHoldingTime)
}

func TestCorrelation(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	assert.InDelta(t, 1.0, Correlation(a, []float64{2, 4, 6, 8}), 1e-12)
	assert.InDelta(t, -1.0, Correlation(a, []float64{8, 6, 4, 2}), 1e-12)
	assert.Zero(t, Correlation(a, []float64{5, 5, 5, 5}))
	assert.Zero(t, Correlation(a, []float64{1, 2}))
}

func rec(symbol string, ts time.Time, side types.Side, pnl string) types.TradeRecord {
	return types.TradeRecord{
		Timestamp:   ts,
		Symbol:      symbol,
		Side:        side,
		RealizedPnL: decimal.RequireFromString(pnl),
		Realized:    side == types.SideTypeSell,
	}
}
