package sizing

import (
	"math"

	"quantbt/internal/metrics"
	"quantbt/types"
)

// Bucket thresholds for the regime classifier. Annualized volatility
// below/above the band and volume relative to the window mean.
const (
	lowVolThreshold  = 0.20
	highVolThreshold = 0.50
	trendThreshold   = 0.03
	highVolumeRatio  = 1.5
	lowVolumeRatio   = 0.5
)

// ClassifyRegime buckets current market conditions along the three
// sizing axes from the trailing window of candles. Insufficient
// history lands in the neutral buckets, which the adjustment tables
// multiply by 1.0.
func ClassifyRegime(candles []types.Candle, window int) types.MarketRegime {
	regime := types.MarketRegime{
		Volatility: types.MediumVolatility,
		Trend:      types.Sideways,
		Volume:     types.NormalVolume,
	}
	if window <= 0 {
		window = 20
	}
	if len(candles) < 2 {
		return regime
	}

	recent := candles
	if len(recent) > window {
		recent = recent[len(recent)-window:]
	}

	vol := metrics.StdDev(types.Returns(recent)) * math.Sqrt(tradingDaysPerYear)
	switch {
	case vol < lowVolThreshold:
		regime.Volatility = types.LowVolatility
	case vol > highVolThreshold:
		regime.Volatility = types.HighVolatility
	}

	closes := types.CloseSeries(recent)
	var smaSum float64
	for _, c := range closes {
		smaSum += c
	}
	sma := smaSum / float64(len(closes))
	last := closes[len(closes)-1]
	if sma > 0 {
		switch drift := last/sma - 1; {
		case drift > trendThreshold:
			regime.Trend = types.StrongUptrend
		case drift < -trendThreshold:
			regime.Trend = types.StrongDowntrend
		}
	}

	var volumeSum float64
	for _, c := range recent {
		volumeSum += c.Volume.InexactFloat64()
	}
	meanVolume := volumeSum / float64(len(recent))
	lastVolume := recent[len(recent)-1].Volume.InexactFloat64()
	if meanVolume > 0 {
		switch ratio := lastVolume / meanVolume; {
		case ratio > highVolumeRatio:
			regime.Volume = types.HighVolume
		case ratio < lowVolumeRatio:
			regime.Volume = types.LowVolume
		}
	}

	return regime
}
