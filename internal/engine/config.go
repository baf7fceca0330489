package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"quantbt/internal/sizing"
	"quantbt/types"
)

// DataFeed names one instrument series to load from the data store.
type DataFeed struct {
	Ticker   string
	Interval types.Interval
	Start    time.Time
	End      time.Time
}

func NewDataFeed(ticker string, interval types.Interval, start, end time.Time) *DataFeed {
	return &DataFeed{
		Ticker:   ticker,
		Interval: interval,
		Start:    start,
		End:      end,
	}
}

// RunConfig holds the parameters of one backtest run. Runs never share
// mutable state: a config is copied into each run.
type RunConfig struct {
	Symbols        []string
	Start          time.Time
	End            time.Time
	InitialCapital decimal.Decimal

	CommissionRate decimal.Decimal
	SlippageRate   decimal.Decimal

	VolatilityWindow    int
	VolatilityMethod    sizing.Method
	MinPositionSize     float64
	MaxPositionSize     float64
	PositionScaleFactor float64

	RiskFreeRate float64

	// Bracket exits; zero percentages disable them.
	StopLossPct   decimal.Decimal
	TakeProfitPct decimal.Decimal

	// Cap on simultaneously held symbols; zero means unlimited.
	MaxOpenPositions int
}

// NewRunConfig builds a config with the standard cost model: 0.1%
// commission, 0.05% slippage, 20-period volatility window.
func NewRunConfig(symbols []string, start, end time.Time, initialCapital decimal.Decimal) RunConfig {
	return RunConfig{
		Symbols:             symbols,
		Start:               start,
		End:                 end,
		InitialCapital:      initialCapital,
		CommissionRate:      decimal.NewFromFloat(0.001),
		SlippageRate:        decimal.NewFromFloat(0.0005),
		VolatilityWindow:    20,
		VolatilityMethod:    sizing.MethodStandard,
		MinPositionSize:     0.01,
		MaxPositionSize:     1.0,
		PositionScaleFactor: 1.0,
		RiskFreeRate:        0.02,
	}
}

func (c RunConfig) validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("%w: no symbols", ErrInvalidConfig)
	}
	if !c.End.After(c.Start) {
		return fmt.Errorf("%w: end %s not after start %s", ErrInvalidConfig, c.End, c.Start)
	}
	if c.InitialCapital.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: initial capital must be positive", ErrInvalidConfig)
	}
	one := decimal.NewFromInt(1)
	if c.CommissionRate.IsNegative() || c.CommissionRate.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: commission rate %s outside [0,1)", ErrInvalidConfig, c.CommissionRate)
	}
	if c.SlippageRate.IsNegative() || c.SlippageRate.GreaterThanOrEqual(one) {
		return fmt.Errorf("%w: slippage rate %s outside [0,1)", ErrInvalidConfig, c.SlippageRate)
	}
	if c.VolatilityWindow < 2 {
		return fmt.Errorf("%w: volatility window %d below 2", ErrInvalidConfig, c.VolatilityWindow)
	}
	if c.MinPositionSize < 0 || c.MaxPositionSize <= 0 || c.MinPositionSize > c.MaxPositionSize {
		return fmt.Errorf("%w: position size bounds [%f, %f]", ErrInvalidConfig, c.MinPositionSize, c.MaxPositionSize)
	}
	if c.StopLossPct.IsNegative() || c.TakeProfitPct.IsNegative() {
		return fmt.Errorf("%w: bracket percentages must not be negative", ErrInvalidConfig)
	}
	if c.MaxOpenPositions < 0 {
		return fmt.Errorf("%w: max open positions %d", ErrInvalidConfig, c.MaxOpenPositions)
	}
	return nil
}

func (c RunConfig) sizerConfig() sizing.Config {
	return sizing.Config{
		VolatilityLookback: c.VolatilityWindow,
		ScaleFactor:        c.PositionScaleFactor,
		MinPositionSize:    c.MinPositionSize,
		MaxPositionSize:    c.MaxPositionSize,
	}
}
