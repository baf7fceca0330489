package engine

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"quantbt/types"
)

func sampleTrades() []types.TradeRecord {
	return []types.TradeRecord{
		{
			Timestamp:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Symbol:         "BTC",
			Side:           types.SideTypeBuy,
			Quantity:       decimal.RequireFromString("0.5"),
			Price:          decimal.RequireFromString("60030"),
			Commission:     decimal.RequireFromString("30.015"),
			Cost:           decimal.RequireFromString("30045.015"),
			PortfolioValue: decimal.RequireFromString("100000"),
			Reason:         "momentum entry",
		},
		{
			Timestamp:      time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
			Symbol:         "BTC",
			Side:           types.SideTypeSell,
			Quantity:       decimal.RequireFromString("0.5"),
			Price:          decimal.RequireFromString("64967.5"),
			Commission:     decimal.RequireFromString("32.48375"),
			Cost:           decimal.RequireFromString("32516.23375"),
			RealizedPnL:    decimal.RequireFromString("2436.22875"),
			Realized:       true,
			PortfolioValue: decimal.RequireFromString("102400"),
			Reason:         "take_profit",
		},
	}
}

func TestWriteTradesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTradesCSV(&buf, sampleTrades()); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header plus 2 trades", len(rows))
	}
	if rows[0][0] != "timestamp" || rows[0][7] != "realized_pnl" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	buyRow, sellRow := rows[1], rows[2]
	if buyRow[2] != "BUY" || buyRow[4] != "60030" {
		t.Errorf("buy row = %v", buyRow)
	}
	// unrealized trades leave the pnl column empty
	if buyRow[7] != "" {
		t.Errorf("buy pnl = %q, want empty", buyRow[7])
	}
	if sellRow[7] != "2436.22875" {
		t.Errorf("sell pnl = %q, want 2436.22875", sellRow[7])
	}
	if sellRow[9] != "take_profit" {
		t.Errorf("sell reason = %q", sellRow[9])
	}
}

func TestWriteTradesCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	res := &Result{Trades: sampleTrades()}

	if err := res.WriteTradesCSVFile(path); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("rows = %d, want 3", len(rows))
	}
}
