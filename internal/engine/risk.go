package engine

import (
	"github.com/shopspring/decimal"
)

const (
	exitStopLoss   = "stop_loss"
	exitTakeProfit = "take_profit"
)

// bracket is the exit envelope around one long position.
type bracket struct {
	entry      decimal.Decimal
	stopLoss   decimal.Decimal
	takeProfit decimal.Decimal
}

// riskManager tracks per-position bracket levels and enforces the open
// position cap. Levels are derived from the executed entry price at
// tracking time and never move afterwards.
type riskManager struct {
	stopLossPct   decimal.Decimal
	takeProfitPct decimal.Decimal
	maxOpen       int
	open          map[string]*bracket
}

func newRiskManager(cfg RunConfig) *riskManager {
	return &riskManager{
		stopLossPct:   cfg.StopLossPct,
		takeProfitPct: cfg.TakeProfitPct,
		maxOpen:       cfg.MaxOpenPositions,
		open:          make(map[string]*bracket),
	}
}

func (m *riskManager) bracketsEnabled() bool {
	return m.stopLossPct.IsPositive() || m.takeProfitPct.IsPositive()
}

// CanOpen gates new entries on the position cap. Scale-ins to an
// already-held symbol are always allowed.
func (m *riskManager) CanOpen(symbol string, heldCount int, alreadyHeld bool) bool {
	if alreadyHeld {
		return true
	}
	if m.maxOpen > 0 && heldCount >= m.maxOpen {
		return false
	}
	return true
}

func (m *riskManager) Track(symbol string, entry decimal.Decimal) {
	if !m.bracketsEnabled() {
		return
	}
	one := decimal.NewFromInt(1)
	b := &bracket{entry: entry}
	if m.stopLossPct.IsPositive() {
		b.stopLoss = entry.Mul(one.Sub(m.stopLossPct))
	}
	if m.takeProfitPct.IsPositive() {
		b.takeProfit = entry.Mul(one.Add(m.takeProfitPct))
	}
	m.open[symbol] = b
}

func (m *riskManager) Untrack(symbol string) {
	delete(m.open, symbol)
}

// CheckExit reports whether the current price pierces the symbol's
// stop-loss or take-profit level.
func (m *riskManager) CheckExit(symbol string, price decimal.Decimal) (string, bool) {
	b, ok := m.open[symbol]
	if !ok {
		return "", false
	}
	if !b.stopLoss.IsZero() && price.LessThanOrEqual(b.stopLoss) {
		return exitStopLoss, true
	}
	if !b.takeProfit.IsZero() && price.GreaterThanOrEqual(b.takeProfit) {
		return exitTakeProfit, true
	}
	return "", false
}

// RiskReward is the reward/risk ratio of a tracked position's bracket,
// zero when untracked or when either leg is disabled.
func (m *riskManager) RiskReward(symbol string) decimal.Decimal {
	b, ok := m.open[symbol]
	if !ok || b.stopLoss.IsZero() || b.takeProfit.IsZero() {
		return decimal.Zero
	}
	risk := b.entry.Sub(b.stopLoss)
	if !risk.IsPositive() {
		return decimal.Zero
	}
	return b.takeProfit.Sub(b.entry).Div(risk)
}
