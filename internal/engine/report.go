package engine

import (
	"fmt"
	"io"
	"sort"

	"quantbt/internal/metrics"
)

// WriteReport prints the human-readable run report.
func (r *Result) WriteReport(w io.Writer) {
	s := r.Summary

	fmt.Fprintln(w, "===== Backtest Report =====")
	if len(r.TickTimestamps) > 0 {
		fmt.Fprintf(w, "Start Date:            %s\n", r.TickTimestamps[0].Format("2006-01-02"))
		fmt.Fprintf(w, "End Date:              %s\n", r.TickTimestamps[len(r.TickTimestamps)-1].Format("2006-01-02"))
		fmt.Fprintf(w, "Ticks:                 %d\n", len(r.TickTimestamps))
	}
	fmt.Fprintf(w, "Total Trades:          %d\n", s.TotalTrades)

	fmt.Fprintln(w, "\n-- Performance --")
	fmt.Fprintf(w, "Initial Capital:       %s\n", s.InitialCapital)
	fmt.Fprintf(w, "Final Capital:         %s\n", s.FinalCapital)
	fmt.Fprintf(w, "Total Return:          %.2f%%\n", s.TotalReturn*100)
	fmt.Fprintf(w, "Win Rate:              %.2f%%\n", s.WinRate*100)
	fmt.Fprintf(w, "Avg Trade PnL:         %.4f\n", s.AvgTradePnL)

	fmt.Fprintln(w, "\n-- Risk-Adjusted Metrics --")
	fmt.Fprintf(w, "Max Drawdown:          %.2f%%\n", s.MaxDrawdown*100)
	fmt.Fprintf(w, "Sharpe Ratio:          %.4f\n", s.SharpeRatio)
	fmt.Fprintf(w, "Sortino Ratio:         %s\n", formatRatio(s.SortinoRatio))
	fmt.Fprintf(w, "Calmar Ratio:          %s\n", formatRatio(s.CalmarRatio))

	if len(r.Monthly) > 0 {
		fmt.Fprintln(w, "\n-- Monthly Breakdown --")
		for _, m := range r.Monthly {
			fmt.Fprintf(w, "%d-%02d  return %8.4f  vol %8.4f  sharpe %8.4f\n",
				m.Year, int(m.Month), m.Return, m.Volatility, m.Sharpe)
		}
	}

	if len(r.PerSymbol) > 0 {
		fmt.Fprintln(w, "\n-- Per Symbol --")
		symbols := make([]string, 0, len(r.PerSymbol))
		for symbol := range r.PerSymbol {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			st := r.PerSymbol[symbol]
			fmt.Fprintf(w, "%-8s trades %3d  win rate %6.2f%%  total pnl %10.4f  avg hold %v\n",
				symbol, st.TotalTrades, st.WinRate*100, st.TotalPnL, st.AvgHoldingTime)
		}
	}

	if len(r.Positions) > 0 {
		fmt.Fprintln(w, "\n-- Open Positions --")
		symbols := make([]string, 0, len(r.Positions))
		for symbol := range r.Positions {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		for _, symbol := range symbols {
			pos := r.Positions[symbol]
			fmt.Fprintf(w, "%-8s qty %s  cost basis %s\n", symbol, pos.Quantity, pos.CostBasis)
		}
	}

	fmt.Fprintln(w, "===========================")
}

func formatRatio(r metrics.Ratio) string {
	if r.Infinite {
		return "inf"
	}
	return fmt.Sprintf("%.4f", r.Value)
}
