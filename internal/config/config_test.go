package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantbt/internal/sizing"
	"quantbt/types"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql://localhost:5432/market")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, cfg.Backtest.Tickers)
	assert.Equal(t, "standard", cfg.Sizing.VolatilityMethod)
	assert.Equal(t, 20, cfg.Sizing.VolatilityWindow)
	assert.True(t, cfg.Backtest.ShowProgress)

	interval, err := cfg.Interval()
	require.NoError(t, err)
	assert.Equal(t, types.Day, interval)
}

func TestLoadMissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestRunConfigTranslation(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql://localhost:5432/market")
	t.Setenv("BACKTEST_TICKERS", "BTC,ETH")
	t.Setenv("BACKTEST_START", "2023-06-01")
	t.Setenv("BACKTEST_END", "2023-12-01")
	t.Setenv("INITIAL_CAPITAL", "50000")
	t.Setenv("COMMISSION_RATE", "0.002")
	t.Setenv("VOLATILITY_METHOD", "garch")
	t.Setenv("STOP_LOSS_PCT", "0.05")
	t.Setenv("MAX_OPEN_POSITIONS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	run, err := cfg.RunConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC", "ETH"}, run.Symbols)
	assert.True(t, run.InitialCapital.Equal(decimal.NewFromInt(50000)))
	assert.True(t, run.CommissionRate.Equal(decimal.RequireFromString("0.002")))
	assert.True(t, run.StopLossPct.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, sizing.MethodGarch, run.VolatilityMethod)
	assert.Equal(t, 3, run.MaxOpenPositions)
	assert.Equal(t, "2023-06-01", run.Start.Format("2006-01-02"))
}

func TestRunConfigBadDate(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql://localhost:5432/market")
	t.Setenv("BACKTEST_START", "June 1st")

	cfg, err := Load()
	require.NoError(t, err)

	_, err = cfg.RunConfig()
	assert.Error(t, err)
}

func TestIntervalUnsupported(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgresql://localhost:5432/market")
	t.Setenv("BACKTEST_INTERVAL", "Y")

	cfg, err := Load()
	require.NoError(t, err)

	_, err = cfg.Interval()
	assert.Error(t, err)
}
