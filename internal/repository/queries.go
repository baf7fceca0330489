package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const selectAssetByTicker = `
SELECT id, ticker, name, type, created_at, modified_at
FROM assets
WHERE ticker = $1`

// Candles are stored at base resolution; coarser intervals are
// aggregated at read time with a time_bucket rollup.
const selectAggregates = `
SELECT time_bucket($1::interval, time) AS bucket,
       asset_id,
       first(open, time) AS open,
       max(high)         AS high,
       min(low)          AS low,
       last(close, time) AS close,
       sum(volume)       AS volume
FROM candles
WHERE asset_id = $2
  AND time >= $3
  AND time <= $4
GROUP BY bucket, asset_id
ORDER BY bucket`

type assetRow struct {
	ID         int32      `db:"id"`
	Ticker     string     `db:"ticker"`
	Name       string     `db:"name"`
	Type       string     `db:"type"`
	CreatedAt  *time.Time `db:"created_at"`
	ModifiedAt *time.Time `db:"modified_at"`
}

type aggregateParams struct {
	TimeBucket string
	AssetID    int32
	Start      time.Time
	End        time.Time
}

type aggregateRow struct {
	Bucket  *time.Time      `db:"bucket"`
	AssetID int32           `db:"asset_id"`
	Open    decimal.Decimal `db:"open"`
	High    decimal.Decimal `db:"high"`
	Low     decimal.Decimal `db:"low"`
	Close   decimal.Decimal `db:"close"`
	Volume  decimal.Decimal `db:"volume"`
}

type queries struct {
	pool *pgxpool.Pool
}

func (q *queries) SelectAssetByTicker(ctx context.Context, ticker string) (assetRow, error) {
	rows, err := q.pool.Query(ctx, selectAssetByTicker, ticker)
	if err != nil {
		return assetRow{}, err
	}
	return pgx.CollectOneRow(rows, pgx.RowToStructByName[assetRow])
}

func (q *queries) SelectAggregates(ctx context.Context, arg aggregateParams) ([]aggregateRow, error) {
	rows, err := q.pool.Query(ctx, selectAggregates, arg.TimeBucket, arg.AssetID, arg.Start, arg.End)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[aggregateRow])
}
