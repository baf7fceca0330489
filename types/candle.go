package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Candle struct {
	AssetId   int             `json:"id"`
	Ticker    string          `json:"ticker"`
	Open      decimal.Decimal `json:"open"`
	Close     decimal.Decimal `json:"close"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Volume    decimal.Decimal `json:"volume"`
	Interval  Interval        `json:"interval"`
	Timestamp time.Time       `json:"timestamp"`
}

// CloseSeries extracts the close prices as float64, oldest first.
// Statistics (volatility, correlation, regime buckets) run on floats;
// the ledger keeps the decimals.
func CloseSeries(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close.InexactFloat64()
	}
	return out
}

// Returns computes period-over-period relative changes of the close
// prices. Length is len(candles)-1, or nil for fewer than 2 candles.
func Returns(candles []Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close.InexactFloat64()
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, candles[i].Close.InexactFloat64()/prev-1)
	}
	return out
}
