package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"quantbt/types"
)

// WriteTradesCSVFile writes the trade ledger to a CSV file at the
// given path.
func (r *Result) WriteTradesCSVFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trades file: %w", err)
	}
	defer f.Close()

	return WriteTradesCSV(f, r.Trades)
}

// WriteTradesCSV writes trades to any io.Writer as CSV. Pass os.Stdout
// for debugging, or a file.
func WriteTradesCSV(w io.Writer, trades []types.TradeRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"timestamp", // RFC3339
		"symbol",
		"side",
		"quantity",
		"price",
		"commission",
		"cost",
		"realized_pnl",
		"portfolio_value",
		"reason",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, t := range trades {
		pnl := ""
		if t.Realized {
			pnl = t.RealizedPnL.String()
		}
		record := []string{
			t.Timestamp.Format(time.RFC3339),
			t.Symbol,
			string(t.Side),
			t.Quantity.String(),
			t.Price.String(),
			t.Commission.String(),
			t.Cost.String(),
			pnl,
			t.PortfolioValue.String(),
			t.Reason,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
