// Package metrics holds the pure performance math: risk/return
// statistics over already-assembled equity, return, and trade series.
// Nothing in here keeps state or touches the ledger.
package metrics

import (
	"math"
	"time"

	"quantbt/types"
)

const tradingDaysPerYear = 252

// Ratio is a risk-adjusted ratio that may legitimately be unbounded
// (Sortino with no downside, Calmar with zero drawdown). Downstream
// consumers check Infinite instead of sniffing for IEEE infinities.
type Ratio struct {
	Value    float64 `json:"value"`
	Infinite bool    `json:"infinite"`
}

func Finite(v float64) Ratio { return Ratio{Value: v} }
func Inf() Ratio             { return Ratio{Infinite: true} }

// Float converts back to a plain float64, mapping the sentinel to +Inf.
func (r Ratio) Float() float64 {
	if r.Infinite {
		return math.Inf(1)
	}
	return r.Value
}

// MaxDrawdown returns the deepest peak-to-trough decline of the equity
// series as a negative fraction in [-1, 0].
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	worst := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := v/peak - 1
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// Sharpe annualizes mean excess return over the standard deviation of
// the full return series. Excess is taken against a daily risk-free
// rate of annualRiskFree/252. Fewer than 2 observations yields 0.
func Sharpe(returns []float64, annualRiskFree float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	std := StdDev(returns)
	if std == 0 {
		return 0
	}
	excessMean := mean(returns) - annualRiskFree/tradingDaysPerYear
	return math.Sqrt(tradingDaysPerYear) * excessMean / std
}

// Sortino is Sharpe with the denominator restricted to negative
// returns. A series with no negative returns has no downside to divide
// by and yields the infinite sentinel.
func Sortino(returns []float64, annualRiskFree float64) Ratio {
	if len(returns) < 2 {
		return Finite(0)
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return Inf()
	}
	std := StdDev(downside)
	if std == 0 {
		return Finite(0)
	}
	excessMean := mean(returns) - annualRiskFree/tradingDaysPerYear
	return Finite(math.Sqrt(tradingDaysPerYear) * excessMean / std)
}

// Calmar divides annualized mean return by the magnitude of max
// drawdown. It needs at least a year of observations, and a flat
// equity curve (zero drawdown) yields the infinite sentinel.
func Calmar(returns, equity []float64) Ratio {
	if len(returns) < tradingDaysPerYear {
		return Finite(0)
	}
	dd := MaxDrawdown(equity)
	if dd == 0 {
		return Inf()
	}
	annual := mean(returns) * tradingDaysPerYear
	return Finite(annual / math.Abs(dd))
}

// MonthlyStat aggregates the return series over one calendar month.
type MonthlyStat struct {
	Year       int        `json:"year"`
	Month      time.Month `json:"month"`
	Return     float64    `json:"return"`
	Volatility float64    `json:"volatility"`
	Sharpe     float64    `json:"sharpe"`
}

// Monthly groups returns by calendar month and emits sum, standard
// deviation, and a sqrt(12)-annualized Sharpe analog per bucket.
// Timestamps must be ascending and aligned 1:1 with returns.
func Monthly(timestamps []time.Time, returns []float64) []MonthlyStat {
	if len(timestamps) != len(returns) || len(returns) == 0 {
		return nil
	}
	var out []MonthlyStat
	var bucket []float64
	flush := func(y int, m time.Month) {
		if len(bucket) == 0 {
			return
		}
		stat := MonthlyStat{Year: y, Month: m, Return: sum(bucket)}
		if len(bucket) >= 2 {
			stat.Volatility = StdDev(bucket)
			if stat.Volatility > 0 {
				stat.Sharpe = math.Sqrt(12) * mean(bucket) / stat.Volatility
			}
		}
		out = append(out, stat)
		bucket = bucket[:0]
	}

	curYear, curMonth, _ := timestamps[0].Date()
	for i, ts := range timestamps {
		y, m, _ := ts.Date()
		if y != curYear || m != curMonth {
			flush(curYear, curMonth)
			curYear, curMonth = y, m
		}
		bucket = append(bucket, returns[i])
	}
	flush(curYear, curMonth)
	return out
}

// SymbolStats summarizes the realized trades of one symbol.
type SymbolStats struct {
	TotalTrades    int           `json:"totalTrades"`
	WinRate        float64       `json:"winRate"`
	AvgPnL         float64       `json:"avgPnl"`
	TotalPnL       float64       `json:"totalPnl"`
	BestTrade      float64       `json:"bestTrade"`
	WorstTrade     float64       `json:"worstTrade"`
	AvgHoldingTime time.Duration `json:"avgHoldingTime"`
}

// PerSymbol aggregates trades by symbol. Holding time pairs trades by
// index parity (0 with 1, 2 with 3, ...), a deliberate approximation
// that misattributes duration when entries and exits don't strictly
// alternate per symbol.
func PerSymbol(trades []types.TradeRecord) map[string]SymbolStats {
	bySymbol := make(map[string][]types.TradeRecord)
	for _, t := range trades {
		bySymbol[t.Symbol] = append(bySymbol[t.Symbol], t)
	}

	out := make(map[string]SymbolStats, len(bySymbol))
	for symbol, symTrades := range bySymbol {
		pnls := make([]float64, len(symTrades))
		wins := 0
		for i, t := range symTrades {
			pnls[i] = t.RealizedPnL.InexactFloat64()
			if pnls[i] > 0 {
				wins++
			}
		}
		stats := SymbolStats{
			TotalTrades: len(symTrades),
			WinRate:     float64(wins) / float64(len(symTrades)),
			AvgPnL:      mean(pnls),
			TotalPnL:    sum(pnls),
			BestTrade:   maxOf(pnls),
			WorstTrade:  minOf(pnls),
		}

		var held time.Duration
		pairs := 0
		for i := 0; i+1 < len(symTrades); i += 2 {
			held += symTrades[i+1].Timestamp.Sub(symTrades[i].Timestamp)
			pairs++
		}
		if pairs > 0 {
			stats.AvgHoldingTime = held / time.Duration(pairs)
		}
		out[symbol] = stats
	}
	return out
}

// Correlation is the Pearson correlation of two equal-length series.
// Degenerate inputs (short, mismatched, or zero-variance) yield 0.
func Correlation(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}
	meanA, meanB := mean(a), mean(b)
	var cov, varA, varB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

// StdDev is the sample standard deviation (n-1 denominator).
func StdDev(xs []float64) float64 {
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

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sum(xs) / float64(len(xs))
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func minOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
