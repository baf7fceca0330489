package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"quantbt/internal/sizing"
	"quantbt/types"
)

// Position is one open holding. CostBasis is the total cost, including
// commission, paid to acquire the current quantity; it is only
// meaningful while Quantity > 0.
type Position struct {
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	CostBasis decimal.Decimal `json:"costBasis"`
}

// portfolio is the authoritative, append-only ledger of cash, open
// positions, and marked equity. One ledger per backtest run, single
// writer, no locking.
type portfolio struct {
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	positions      map[string]*Position
	trades         []types.TradeRecord
	equityCurve    []decimal.Decimal
	returns        []float64
}

func newPortfolio(initialCapital decimal.Decimal) *portfolio {
	return &portfolio{
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]*Position),
		equityCurve:    []decimal.Decimal{initialCapital},
	}
}

// Mark revalues the portfolio at current prices and appends an equity
// point plus the corresponding period return. A held symbol missing
// from prices contributes nothing this tick; its last marked value is
// effectively frozen.
func (p *portfolio) Mark(prices map[string]decimal.Decimal) {
	value := p.cash
	for symbol, pos := range p.positions {
		price, ok := prices[symbol]
		if !ok {
			continue
		}
		value = value.Add(pos.Quantity.Mul(price).Sub(pos.CostBasis))
	}

	prev := p.equityCurve[len(p.equityCurve)-1]
	p.equityCurve = append(p.equityCurve, value)
	if prev.IsZero() {
		p.returns = append(p.returns, 0)
		return
	}
	p.returns = append(p.returns, value.Sub(prev).Div(prev).InexactFloat64())
}

// Execute books one trade against the ledger. The request price must
// already include slippage. The record's PortfolioValue is the last
// marked equity point, i.e. the value before this trade's own effect;
// that ordering must not change.
func (p *portfolio) Execute(req types.TradeRequest) (types.TradeRecord, error) {
	notional := req.Quantity.Mul(req.Price)
	commission := notional.Mul(req.CommissionRate)
	totalCost := notional.Add(commission)

	record := types.TradeRecord{
		Timestamp:      req.Timestamp,
		Symbol:         req.Symbol,
		Side:           req.Side,
		Quantity:       req.Quantity,
		Price:          req.Price,
		Commission:     commission,
		Cost:           totalCost,
		PortfolioValue: p.equityCurve[len(p.equityCurve)-1],
		Reason:         req.Reason,
	}

	switch req.Side {
	case types.SideTypeBuy:
		pos, ok := p.positions[req.Symbol]
		if !ok {
			pos = &Position{Symbol: req.Symbol}
			p.positions[req.Symbol] = pos
		}
		pos.Quantity = pos.Quantity.Add(req.Quantity)
		pos.CostBasis = pos.CostBasis.Add(totalCost)
		p.cash = p.cash.Sub(totalCost)

	case types.SideTypeSell:
		pos, ok := p.positions[req.Symbol]
		if !ok {
			return types.TradeRecord{}, fmt.Errorf("sell %s: %w", req.Symbol, ErrNoPosition)
		}
		avgCost := pos.CostBasis.Div(pos.Quantity)
		record.RealizedPnL = req.Price.Sub(avgCost).Mul(req.Quantity).Sub(commission)
		record.Realized = true

		pos.CostBasis = pos.CostBasis.Sub(avgCost.Mul(req.Quantity))
		pos.Quantity = pos.Quantity.Sub(req.Quantity)
		if pos.Quantity.LessThanOrEqual(decimal.Zero) {
			delete(p.positions, req.Symbol)
		}
		p.cash = p.cash.Add(notional.Sub(commission))

	default:
		return types.TradeRecord{}, fmt.Errorf("%w: %q", ErrUnknownSide, req.Side)
	}

	p.trades = append(p.trades, record)
	return record, nil
}

func (p *portfolio) Holds(symbol string) bool {
	_, ok := p.positions[symbol]
	return ok
}

func (p *portfolio) OpenPositions() int {
	return len(p.positions)
}

// PositionsSnapshot returns copies; the ledger's own positions stay
// private to it.
func (p *portfolio) PositionsSnapshot() map[string]Position {
	out := make(map[string]Position, len(p.positions))
	for symbol, pos := range p.positions {
		out[symbol] = *pos
	}
	return out
}

// PerformanceMetrics derives the running win rate and average win/loss
// magnitudes from realized trades so far, as the Kelly blend's input.
// Returns nil until at least one realized trade exists.
func (p *portfolio) PerformanceMetrics() *sizing.PerformanceMetrics {
	var wins, losses int
	sumWin, sumLoss := decimal.Zero, decimal.Zero
	realized := 0
	for _, t := range p.trades {
		if !t.Realized {
			continue
		}
		realized++
		switch {
		case t.RealizedPnL.GreaterThan(decimal.Zero):
			wins++
			sumWin = sumWin.Add(t.RealizedPnL)
		case t.RealizedPnL.LessThan(decimal.Zero):
			losses++
			sumLoss = sumLoss.Add(t.RealizedPnL.Abs())
		}
	}
	if realized == 0 {
		return nil
	}

	pm := &sizing.PerformanceMetrics{
		WinRate: float64(wins) / float64(realized),
	}
	if wins > 0 {
		pm.AvgWin = sumWin.Div(decimal.NewFromInt(int64(wins))).InexactFloat64()
	}
	if losses > 0 {
		pm.AvgLoss = sumLoss.Div(decimal.NewFromInt(int64(losses))).InexactFloat64()
	}
	return pm
}
