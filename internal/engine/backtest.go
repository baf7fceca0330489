package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"

	"quantbt/internal/metrics"
	"quantbt/internal/sizing"
	"quantbt/types"
)

// Engine owns the loaded market data and drives backtest runs over it.
// The data is read-only once loaded, so independent runs (parameter
// sweeps) may execute in parallel; each run builds its own ledger.
type Engine struct {
	db           dataStore
	feeds        []*DataFeed
	marketData   map[string][]types.Candle
	sentiment    map[string][]types.SentimentSnapshot
	showProgress bool
}

func NewEngine(db dataStore, feeds ...*DataFeed) *Engine {
	return &Engine{
		db:         db,
		feeds:      feeds,
		marketData: make(map[string][]types.Candle),
		sentiment:  make(map[string][]types.SentimentSnapshot),
	}
}

// LoadData pulls every configured feed from the data store.
func (e *Engine) LoadData(ctx context.Context) error {
	for _, feed := range e.feeds {
		asset, err := e.db.GetAssetByTicker(ctx, feed.Ticker)
		if err != nil {
			return fmt.Errorf("load %s: %w", feed.Ticker, err)
		}
		candles, err := e.db.GetCandles(ctx, asset.Id, feed.Ticker, feed.Interval, feed.Start, feed.End)
		if err != nil {
			return fmt.Errorf("load %s: %w", feed.Ticker, err)
		}
		sort.Slice(candles, func(i, j int) bool {
			return candles[i].Timestamp.Before(candles[j].Timestamp)
		})
		e.marketData[feed.Ticker] = candles
	}
	return nil
}

// SetMarketData injects candle series directly, bypassing the store.
func (e *Engine) SetMarketData(data map[string][]types.Candle) {
	for _, candles := range data {
		sort.Slice(candles, func(i, j int) bool {
			return candles[i].Timestamp.Before(candles[j].Timestamp)
		})
	}
	e.marketData = data
}

func (e *Engine) SetSentiment(data map[string][]types.SentimentSnapshot) {
	for _, snaps := range data {
		sort.Slice(snaps, func(i, j int) bool {
			return snaps[i].Timestamp.Before(snaps[j].Timestamp)
		})
	}
	e.sentiment = data
}

func (e *Engine) ShowProgress(show bool) {
	e.showProgress = show
}

// Run executes one deterministic, single-threaded simulation. Any
// unhandled failure mid-run aborts the whole run and discards partial
// logs: a run either fully succeeds or fully fails.
func (e *Engine) Run(cfg RunConfig, strat Strategy) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := e.validateData(cfg); err != nil {
		return nil, err
	}

	clock := e.commonTimestamps(cfg)
	if len(clock) == 0 {
		return nil, fmt.Errorf("%w: no common timestamps in [%s, %s]", ErrMissingData, cfg.Start, cfg.End)
	}

	ledger := newPortfolio(cfg.InitialCapital)
	sizer := sizing.New(cfg.sizerConfig())
	risk := newRiskManager(cfg)

	historyIdx := make(map[string]int, len(cfg.Symbols))
	for _, symbol := range cfg.Symbols {
		historyIdx[symbol] = -1
	}

	var signalLog []SignalRecord

	slog.Info("backtest starting",
		"symbols", cfg.Symbols, "ticks", len(clock),
		"start", clock[0], "end", clock[len(clock)-1])

	var bar *progressbar.ProgressBar
	if e.showProgress {
		bar = initProgressBar(len(clock))
	}

	for _, now := range clock {
		prices := make(map[string]decimal.Decimal, len(cfg.Symbols))
		for _, symbol := range cfg.Symbols {
			idx := advanceHistory(e.marketData[symbol], historyIdx[symbol], now)
			historyIdx[symbol] = idx
			prices[symbol] = e.marketData[symbol][idx].Close
		}

		ledger.Mark(prices)

		if err := e.applyBracketExits(cfg, ledger, risk, prices, now); err != nil {
			return nil, err
		}

		for _, symbol := range cfg.Symbols {
			history := e.marketData[symbol][:historyIdx[symbol]+1]
			sig, err := strat.Analyze(history, e.sentimentAt(symbol, now))
			if err != nil {
				return nil, &TickError{Timestamp: now, Symbol: symbol, Err: err}
			}
			if sig.Action == types.ActionHold {
				continue
			}

			// sizing needs a full volatility window; earlier ticks are warmup
			if len(history) < cfg.VolatilityWindow+1 {
				slog.Debug("skipping signal during warmup", "symbol", symbol, "time", now)
				continue
			}

			regime := sizing.ClassifyRegime(history, cfg.VolatilityWindow)
			correlations := e.correlationsToHeld(cfg, ledger, symbol, now)

			quantity, err := sizer.OptimalSize(
				types.CloseSeries(history),
				sig.Size,
				cfg.VolatilityMethod,
				regime,
				correlations,
				ledger.PerformanceMetrics(),
			)
			if err != nil {
				return nil, &TickError{Timestamp: now, Symbol: symbol, Err: err}
			}
			if quantity <= 0 {
				continue
			}

			side := types.SideTypeBuy
			if sig.Action == types.ActionSell {
				side = types.SideTypeSell
			}
			if side == types.SideTypeBuy && !risk.CanOpen(symbol, ledger.OpenPositions(), ledger.Holds(symbol)) {
				slog.Warn("position cap reached, skipping entry", "symbol", symbol, "time", now)
				continue
			}

			qty := decimal.NewFromFloat(quantity)
			if side == types.SideTypeSell && ledger.Holds(symbol) {
				// never sell more than is held
				if held := ledger.PositionsSnapshot()[symbol].Quantity; qty.GreaterThan(held) {
					qty = held
				}
			}

			record, err := ledger.Execute(types.TradeRequest{
				Timestamp:      now,
				Symbol:         symbol,
				Side:           side,
				Quantity:       qty,
				Price:          applySlippage(prices[symbol], side, cfg.SlippageRate),
				CommissionRate: cfg.CommissionRate,
				Reason:         sig.Reason,
			})
			if err != nil {
				if errors.Is(err, ErrNoPosition) {
					slog.Warn("sell with no open position, trade skipped", "symbol", symbol, "time", now)
					continue
				}
				return nil, &TickError{Timestamp: now, Symbol: symbol, Err: err}
			}

			switch side {
			case types.SideTypeBuy:
				risk.Track(symbol, record.Price)
			case types.SideTypeSell:
				if !ledger.Holds(symbol) {
					risk.Untrack(symbol)
				}
			}

			signalLog = append(signalLog, SignalRecord{
				Timestamp: now,
				Symbol:    symbol,
				Signal:    sig,
				Trade:     &record,
			})
		}

		if bar != nil {
			bar.Add(1)
		}
	}

	result := assembleResult(cfg, ledger, signalLog, clock)
	slog.Info("backtest finished",
		"trades", result.Summary.TotalTrades,
		"finalCapital", result.Summary.FinalCapital,
		"maxDrawdown", result.Summary.MaxDrawdown)
	return result, nil
}

// applyBracketExits closes any tracked position whose stop-loss or
// take-profit level the current price has pierced. Exits book through
// the ledger like any other sell.
func (e *Engine) applyBracketExits(
	cfg RunConfig,
	ledger *portfolio,
	risk *riskManager,
	prices map[string]decimal.Decimal,
	now time.Time,
) error {
	if !risk.bracketsEnabled() {
		return nil
	}
	for _, symbol := range cfg.Symbols {
		if !ledger.Holds(symbol) {
			risk.Untrack(symbol)
			continue
		}
		reason, hit := risk.CheckExit(symbol, prices[symbol])
		if !hit {
			continue
		}
		quantity := ledger.PositionsSnapshot()[symbol].Quantity
		_, err := ledger.Execute(types.TradeRequest{
			Timestamp:      now,
			Symbol:         symbol,
			Side:           types.SideTypeSell,
			Quantity:       quantity,
			Price:          applySlippage(prices[symbol], types.SideTypeSell, cfg.SlippageRate),
			CommissionRate: cfg.CommissionRate,
			Reason:         reason,
		})
		if err != nil {
			return &TickError{Timestamp: now, Symbol: symbol, Err: err}
		}
		risk.Untrack(symbol)
		slog.Info("bracket exit", "symbol", symbol, "reason", reason, "time", now)
	}
	return nil
}

// correlationsToHeld measures the candidate symbol's return
// correlation against every currently held symbol over the trailing
// volatility window.
func (e *Engine) correlationsToHeld(cfg RunConfig, ledger *portfolio, symbol string, now time.Time) map[string]float64 {
	out := make(map[string]float64)
	candidate := trailingReturns(e.marketData[symbol], now, cfg.VolatilityWindow)
	if len(candidate) < 2 {
		return out
	}
	for held := range ledger.PositionsSnapshot() {
		if held == symbol {
			continue
		}
		other := trailingReturns(e.marketData[held], now, cfg.VolatilityWindow)
		n := min(len(candidate), len(other))
		if n < 2 {
			continue
		}
		out[held] = metrics.Correlation(candidate[len(candidate)-n:], other[len(other)-n:])
	}
	return out
}

// validateData fails fast, before the loop starts, when a configured
// symbol has no data. Suspect datapoints are tolerated but logged.
// Read-only so parallel sweep runs can share the engine.
func (e *Engine) validateData(cfg RunConfig) error {
	for _, symbol := range cfg.Symbols {
		candles, ok := e.marketData[symbol]
		if !ok || len(candles) == 0 {
			return fmt.Errorf("%w: symbol %s", ErrMissingData, symbol)
		}
		for _, c := range candles {
			if c.Close.LessThanOrEqual(decimal.Zero) {
				slog.Warn("non-positive close in market data",
					"symbol", symbol, "time", c.Timestamp)
				break
			}
		}
	}
	return nil
}

// commonTimestamps intersects every symbol's timestamps within the
// configured range. The sorted intersection is the simulation clock: a
// tick only happens where all symbols have data, keeping mark-to-market
// synchronized.
func (e *Engine) commonTimestamps(cfg RunConfig) []time.Time {
	counts := make(map[time.Time]int)
	for _, symbol := range cfg.Symbols {
		seen := make(map[time.Time]bool)
		for _, c := range e.marketData[symbol] {
			if c.Timestamp.Before(cfg.Start) || c.Timestamp.After(cfg.End) {
				continue
			}
			if !seen[c.Timestamp] {
				seen[c.Timestamp] = true
				counts[c.Timestamp]++
			}
		}
	}

	var clock []time.Time
	for ts, n := range counts {
		if n == len(cfg.Symbols) {
			clock = append(clock, ts)
		}
	}
	sort.Slice(clock, func(i, j int) bool { return clock[i].Before(clock[j]) })
	return clock
}

func (e *Engine) sentimentAt(symbol string, now time.Time) *types.SentimentSnapshot {
	snaps := e.sentiment[symbol]
	i := sort.Search(len(snaps), func(i int) bool {
		return !snaps[i].Timestamp.Before(now)
	})
	if i < len(snaps) && snaps[i].Timestamp.Equal(now) {
		return &snaps[i]
	}
	return nil
}

// advanceHistory moves the per-symbol cursor to the last candle at or
// before now. The cursor only moves forward.
func advanceHistory(candles []types.Candle, prev int, now time.Time) int {
	idx := prev
	for idx+1 < len(candles) && !candles[idx+1].Timestamp.After(now) {
		idx++
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// trailingReturns yields up to window returns from the candles at or
// before now.
func trailingReturns(candles []types.Candle, now time.Time, window int) []float64 {
	end := 0
	for end < len(candles) && !candles[end].Timestamp.After(now) {
		end++
	}
	start := end - window - 1
	if start < 0 {
		start = 0
	}
	return types.Returns(candles[start:end])
}

// applySlippage worsens the quoted price for the initiating side.
func applySlippage(price decimal.Decimal, side types.Side, rate decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if side == types.SideTypeBuy {
		return price.Mul(one.Add(rate))
	}
	return price.Mul(one.Sub(rate))
}

func initProgressBar(maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
