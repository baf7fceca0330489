package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"
)

// TradeRequest is what the backtest loop hands the ledger: the price is
// already slippage-adjusted.
type TradeRequest struct {
	Timestamp      time.Time
	Symbol         string
	Side           Side
	Quantity       decimal.Decimal
	Price          decimal.Decimal
	CommissionRate decimal.Decimal
	Reason         string
}

// TradeRecord is one booked trade. Records are immutable once appended
// to the ledger's history: never mutated, never deleted.
//
// PortfolioValue is the last marked equity point at booking time, i.e.
// the value before this trade's own effect is marked.
type TradeRecord struct {
	Timestamp      time.Time       `json:"timestamp"`
	Symbol         string          `json:"symbol"`
	Side           Side            `json:"side"`
	Quantity       decimal.Decimal `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Commission     decimal.Decimal `json:"commission"`
	Cost           decimal.Decimal `json:"cost"`
	RealizedPnL    decimal.Decimal `json:"realizedPnl"`
	Realized       bool            `json:"realized"`
	PortfolioValue decimal.Decimal `json:"portfolioValue"`
	Reason         string          `json:"reason,omitempty"`
}
