package engine

import (
	"context"
	"time"

	"quantbt/types"
)

// Strategy is the external signal-generation collaborator. It sees
// history strictly up to the current tick (no lookahead) plus an
// optional sentiment snapshot, and answers with a directional signal,
// a confidence in [0,1], and a raw size suggestion.
type Strategy interface {
	Analyze(history []types.Candle, sentiment *types.SentimentSnapshot) (types.Signal, error)
}

type dataStore interface {
	GetAssetByTicker(ctx context.Context, ticker string) (*types.Asset, error)
	GetCandles(ctx context.Context, assetId int, ticker string, interval types.Interval, start, end time.Time) ([]types.Candle, error)
}
