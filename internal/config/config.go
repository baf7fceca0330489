// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"quantbt/internal/engine"
	"quantbt/internal/sizing"
	"quantbt/types"
)

const dateLayout = "2006-01-02"

type Config struct {
	Database struct {
		URL string `envconfig:"DATABASE_URL" required:"true"`
	}

	Backtest struct {
		Tickers        []string `envconfig:"BACKTEST_TICKERS" default:"AAPL"`
		Interval       string   `envconfig:"BACKTEST_INTERVAL" default:"D"`
		Start          string   `envconfig:"BACKTEST_START" default:"2022-01-01"`
		End            string   `envconfig:"BACKTEST_END" default:"2023-01-01"`
		InitialCapital string   `envconfig:"INITIAL_CAPITAL" default:"100000"`
		ShowProgress   bool     `envconfig:"SHOW_PROGRESS" default:"true"`
	}

	Costs struct {
		CommissionRate string `envconfig:"COMMISSION_RATE" default:"0.001"`
		SlippageRate   string `envconfig:"SLIPPAGE_RATE" default:"0.0005"`
	}

	Sizing struct {
		VolatilityWindow int     `envconfig:"VOLATILITY_WINDOW" default:"20"`
		VolatilityMethod string  `envconfig:"VOLATILITY_METHOD" default:"standard"`
		MinPositionSize  float64 `envconfig:"MIN_POSITION_SIZE" default:"0.01"`
		MaxPositionSize  float64 `envconfig:"MAX_POSITION_SIZE" default:"1.0"`
		ScaleFactor      float64 `envconfig:"POSITION_SCALE_FACTOR" default:"1.0"`
	}

	Risk struct {
		RiskFreeRate     float64 `envconfig:"RISK_FREE_RATE" default:"0.02"`
		StopLossPct      string  `envconfig:"STOP_LOSS_PCT" default:"0"`
		TakeProfitPct    string  `envconfig:"TAKE_PROFIT_PCT" default:"0"`
		MaxOpenPositions int     `envconfig:"MAX_OPEN_POSITIONS" default:"0"`
	}

	Export struct {
		TradesCSV string `envconfig:"TRADES_CSV_PATH"`
	}
}

// Load reads the .env file when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	return &cfg, nil
}

// Interval resolves the configured candle interval.
func (c *Config) Interval() (types.Interval, error) {
	interval := types.Interval(c.Backtest.Interval)
	if _, ok := types.IntervalToTime[interval]; !ok {
		return "", fmt.Errorf("unsupported interval %q", c.Backtest.Interval)
	}
	return interval, nil
}

// RunConfig translates the loaded settings into an engine run
// configuration.
func (c *Config) RunConfig() (engine.RunConfig, error) {
	start, err := time.Parse(dateLayout, c.Backtest.Start)
	if err != nil {
		return engine.RunConfig{}, fmt.Errorf("parse BACKTEST_START: %w", err)
	}
	end, err := time.Parse(dateLayout, c.Backtest.End)
	if err != nil {
		return engine.RunConfig{}, fmt.Errorf("parse BACKTEST_END: %w", err)
	}
	capital, err := decimal.NewFromString(c.Backtest.InitialCapital)
	if err != nil {
		return engine.RunConfig{}, fmt.Errorf("parse INITIAL_CAPITAL: %w", err)
	}

	cfg := engine.NewRunConfig(c.Backtest.Tickers, start, end, capital)

	if cfg.CommissionRate, err = decimal.NewFromString(c.Costs.CommissionRate); err != nil {
		return engine.RunConfig{}, fmt.Errorf("parse COMMISSION_RATE: %w", err)
	}
	if cfg.SlippageRate, err = decimal.NewFromString(c.Costs.SlippageRate); err != nil {
		return engine.RunConfig{}, fmt.Errorf("parse SLIPPAGE_RATE: %w", err)
	}
	if cfg.StopLossPct, err = decimal.NewFromString(c.Risk.StopLossPct); err != nil {
		return engine.RunConfig{}, fmt.Errorf("parse STOP_LOSS_PCT: %w", err)
	}
	if cfg.TakeProfitPct, err = decimal.NewFromString(c.Risk.TakeProfitPct); err != nil {
		return engine.RunConfig{}, fmt.Errorf("parse TAKE_PROFIT_PCT: %w", err)
	}

	cfg.VolatilityWindow = c.Sizing.VolatilityWindow
	cfg.VolatilityMethod = sizing.Method(c.Sizing.VolatilityMethod)
	cfg.MinPositionSize = c.Sizing.MinPositionSize
	cfg.MaxPositionSize = c.Sizing.MaxPositionSize
	cfg.PositionScaleFactor = c.Sizing.ScaleFactor
	cfg.RiskFreeRate = c.Risk.RiskFreeRate
	cfg.MaxOpenPositions = c.Risk.MaxOpenPositions

	return cfg, nil
}
