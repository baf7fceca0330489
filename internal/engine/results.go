package engine

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"quantbt/internal/metrics"
	"quantbt/types"
)

// SignalRecord pairs a strategy signal with the trade it produced.
type SignalRecord struct {
	Timestamp time.Time          `json:"timestamp"`
	Symbol    string             `json:"symbol"`
	Signal    types.Signal       `json:"signal"`
	Trade     *types.TradeRecord `json:"trade,omitempty"`
}

// Summary is the headline statistics block of one run.
type Summary struct {
	InitialCapital decimal.Decimal `json:"initialCapital"`
	FinalCapital   decimal.Decimal `json:"finalCapital"`
	TotalReturn    float64         `json:"totalReturn"`
	TotalTrades    int             `json:"totalTrades"`
	WinRate        float64         `json:"winRate"`
	AvgTradePnL    float64         `json:"avgTradePnl"`
	MaxDrawdown    float64         `json:"maxDrawdown"`
	SharpeRatio    float64         `json:"sharpeRatio"`
	SortinoRatio   metrics.Ratio   `json:"sortinoRatio"`
	CalmarRatio    metrics.Ratio   `json:"calmarRatio"`
}

// Result is the immutable snapshot of one completed run, the sole
// artifact the core hands to reporting and serialization layers. It
// owns copies of every series; nothing points back into the ledger.
type Result struct {
	Summary        Summary                        `json:"summary"`
	Trades         []types.TradeRecord            `json:"trades"`
	Signals        []SignalRecord                 `json:"signals"`
	EquityCurve    []decimal.Decimal              `json:"equityCurve"`
	Returns        []float64                      `json:"returns"`
	TickTimestamps []time.Time                    `json:"tickTimestamps"`
	Positions      map[string]Position            `json:"positions"`
	Monthly        []metrics.MonthlyStat          `json:"monthly"`
	PerSymbol      map[string]metrics.SymbolStats `json:"perSymbol"`
	RiskFreeRate   float64                        `json:"riskFreeRate"`
}

func assembleResult(cfg RunConfig, ledger *portfolio, signals []SignalRecord, clock []time.Time) *Result {
	res := &Result{
		Trades:         append([]types.TradeRecord(nil), ledger.trades...),
		Signals:        append([]SignalRecord(nil), signals...),
		EquityCurve:    append([]decimal.Decimal(nil), ledger.equityCurve...),
		Returns:        append([]float64(nil), ledger.returns...),
		TickTimestamps: append([]time.Time(nil), clock...),
		Positions:      ledger.PositionsSnapshot(),
		RiskFreeRate:   cfg.RiskFreeRate,
	}
	res.Summary = computeSummary(cfg.InitialCapital, res.EquityCurve, res.Returns, res.Trades, cfg.RiskFreeRate)
	res.Monthly = metrics.Monthly(res.TickTimestamps, res.Returns)
	res.PerSymbol = metrics.PerSymbol(res.Trades)
	return res
}

// RecomputeSummary rebuilds the headline block from the result's own
// component series. Reassembling a serialized result must reproduce
// the original statistics exactly.
func (r *Result) RecomputeSummary() Summary {
	initial := decimal.Zero
	if len(r.EquityCurve) > 0 {
		initial = r.EquityCurve[0]
	}
	return computeSummary(initial, r.EquityCurve, r.Returns, r.Trades, r.RiskFreeRate)
}

func computeSummary(
	initial decimal.Decimal,
	equity []decimal.Decimal,
	returns []float64,
	trades []types.TradeRecord,
	riskFree float64,
) Summary {
	s := Summary{
		InitialCapital: initial,
		FinalCapital:   initial,
		TotalTrades:    len(trades),
	}
	if len(equity) > 0 {
		s.FinalCapital = equity[len(equity)-1]
	}
	if initial.IsPositive() {
		s.TotalReturn = s.FinalCapital.Div(initial).InexactFloat64() - 1
	}

	if len(trades) > 0 {
		wins := 0
		pnlSum := decimal.Zero
		for _, t := range trades {
			if t.RealizedPnL.GreaterThan(decimal.Zero) {
				wins++
			}
			pnlSum = pnlSum.Add(t.RealizedPnL)
		}
		s.WinRate = float64(wins) / float64(len(trades))
		s.AvgTradePnL = pnlSum.Div(decimal.NewFromInt(int64(len(trades)))).InexactFloat64()
	}

	equityF := make([]float64, len(equity))
	for i, v := range equity {
		equityF[i] = v.InexactFloat64()
	}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		s.MaxDrawdown = metrics.MaxDrawdown(equityF)
	}()
	go func() {
		defer wg.Done()
		s.SharpeRatio = metrics.Sharpe(returns, riskFree)
	}()
	go func() {
		defer wg.Done()
		s.SortinoRatio = metrics.Sortino(returns, riskFree)
	}()
	go func() {
		defer wg.Done()
		s.CalmarRatio = metrics.Calmar(returns, equityF)
	}()
	wg.Wait()

	return s
}
