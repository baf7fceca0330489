package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"quantbt/internal/config"
	"quantbt/internal/engine"
	"quantbt/internal/repository"
	"quantbt/strategies/momentum"
)

func main() {
	fastFlag := flag.Int("fast", 10, "fast moving average window")
	slowFlag := flag.Int("slow", 30, "slow moving average window")
	baseSizeFlag := flag.Float64("size", 1.0, "raw size suggestion per signal")
	verboseFlag := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(*fastFlag, *slowFlag, *baseSizeFlag); err != nil {
		slog.Error("backtest failed", "error", err)
		os.Exit(1)
	}
}

func run(fast, slow int, baseSize float64) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	interval, err := cfg.Interval()
	if err != nil {
		return err
	}
	runCfg, err := cfg.RunConfig()
	if err != nil {
		return err
	}

	strat, err := momentum.New(fast, slow, baseSize)
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := repository.NewDatabase(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	feeds := make([]*engine.DataFeed, 0, len(runCfg.Symbols))
	for _, symbol := range runCfg.Symbols {
		feeds = append(feeds, engine.NewDataFeed(symbol, interval, runCfg.Start, runCfg.End))
	}

	eng := engine.NewEngine(db, feeds...)
	eng.ShowProgress(cfg.Backtest.ShowProgress)
	if err := eng.LoadData(ctx); err != nil {
		return err
	}

	result, err := eng.Run(runCfg, strat)
	if err != nil {
		return err
	}

	result.WriteReport(os.Stdout)

	if path := cfg.Export.TradesCSV; path != "" {
		if err := result.WriteTradesCSVFile(path); err != nil {
			return err
		}
		slog.Info("trades exported", "path", path)
	}
	return nil
}
