package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"quantbt/types"
)

var bucketToInterval = map[types.Interval]string{
	types.OneMinute:      "1 minute",
	types.FiveMinutes:    "5 minutes",
	types.FifteenMinutes: "15 minutes",
	types.ThirtyMinutes:  "30 minutes",
	types.Hour:           "1 hour",
	types.FourHours:      "4 hours",
	types.Day:            "1 day",
	types.Week:           "1 week",
}

// GetCandles retrieves aggregated candles for one asset over [start, end].
func (db *Database) GetCandles(ctx context.Context, assetId int, ticker string, interval types.Interval, start, end time.Time) ([]types.Candle, error) {
	bucket, ok := bucketToInterval[interval]
	if !ok {
		return nil, ErrIntervalNotSupported
	}
	args := aggregateParams{
		TimeBucket: bucket,
		AssetID:    int32(assetId),
		Start:      start,
		End:        end,
	}
	rows, err := db.candles.SelectAggregates(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoCandles
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoCandles
	}
	return convertCandles(rows, interval, ticker), nil
}

func convertCandles(rows []aggregateRow, interval types.Interval, ticker string) []types.Candle {
	var candles []types.Candle
	for _, row := range rows {
		candles = append(candles, types.Candle{
			AssetId:   int(row.AssetID),
			Ticker:    ticker,
			Open:      row.Open,
			Close:     row.Close,
			High:      row.High,
			Low:       row.Low,
			Volume:    row.Volume,
			Interval:  interval,
			Timestamp: timeOrZero(row.Bucket),
		})
	}
	return candles
}
