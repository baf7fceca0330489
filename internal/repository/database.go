package repository

import (
	"context"
	"errors"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Global error declarations.
var (
	ErrIntervalNotSupported = errors.New("interval not supported")
	ErrAssetNotFound        = errors.New("asset not found in datasource")
	ErrNoCandles            = errors.New("no candles found in datasource")
)

type assetQuerier interface {
	SelectAssetByTicker(ctx context.Context, ticker string) (assetRow, error)
}
type candleQuerier interface {
	SelectAggregates(ctx context.Context, arg aggregateParams) ([]aggregateRow, error)
}

// Database holds the connection pool and the query surfaces.
type Database struct {
	assets  assetQuerier
	candles candleQuerier
	pool    *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(ctx context.Context, dbURL string) (*Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	// Ensure the connection is established.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	q := &queries{pool: pool}
	return &Database{
		assets:  q,
		candles: q,
		pool:    pool}, nil
}

func (db *Database) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}
