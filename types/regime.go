package types

type VolatilityRegime string
type TrendRegime string
type VolumeRegime string

const (
	LowVolatility    VolatilityRegime = "low_volatility"
	MediumVolatility VolatilityRegime = "medium_volatility"
	HighVolatility   VolatilityRegime = "high_volatility"

	StrongUptrend   TrendRegime = "strong_uptrend"
	StrongDowntrend TrendRegime = "strong_downtrend"
	Sideways        TrendRegime = "sideways"

	HighVolume   VolumeRegime = "high_volume"
	NormalVolume VolumeRegime = "normal_volume"
	LowVolume    VolumeRegime = "low_volume"
)

// MarketRegime is a discrete classification of current conditions, one
// bucket per axis. The sizer keys its adjustment tables off these.
type MarketRegime struct {
	Volatility VolatilityRegime `json:"volatility"`
	Trend      TrendRegime      `json:"trend"`
	Volume     VolumeRegime     `json:"volume"`
}
