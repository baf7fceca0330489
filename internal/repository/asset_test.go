package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"quantbt/types"
)

type mockAssetQuerier struct {
	sqlError error
}

func TestDatabase_GetAssetByTicker(t *testing.T) {
	type args struct {
		ticker string
	}
	tests := []struct {
		name    string
		args    args
		want    *types.Asset
		sqlErr  error
		wantErr error
	}{
		{"should throw ErrAssetNotFound", args{"AAPL"}, nil, pgx.ErrNoRows, ErrAssetNotFound},
		{"should return asset", args{"AAPL"}, &types.Asset{Ticker: "AAPL", Id: 1}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &Database{
				assets: mockAssetQuerier{
					sqlError: tt.sqlErr,
				},
			}
			got, err := db.GetAssetByTicker(context.Background(), tt.args.ticker)
			if err != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetAssetByTicker() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if got.Ticker != tt.want.Ticker {
				t.Errorf("GetAssetByTicker() ticker = %v, want %v", got, tt.want)
			}
			if got.Id != tt.want.Id {
				t.Errorf("GetAssetByTicker() id = %v, want %v", got, tt.want)
			}
		})
	}
}

func (m mockAssetQuerier) SelectAssetByTicker(_ context.Context, ticker string) (assetRow, error) {
	if m.sqlError != nil {
		return assetRow{}, m.sqlError
	}
	curTime := time.UnixMilli(1)
	return assetRow{
		ID:         1,
		Ticker:     ticker,
		Name:       "Apple",
		Type:       string(types.AssetTypeStock),
		CreatedAt:  &curTime,
		ModifiedAt: &curTime,
	}, nil
}
