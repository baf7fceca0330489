package types

import "time"

type SignalAction string

const (
	ActionBuy  SignalAction = "BUY"
	ActionSell SignalAction = "SELL"
	ActionHold SignalAction = "HOLD"
)

// Signal is the strategy collaborator's verdict for one symbol at one
// tick. Size is a raw suggestion in units of the asset; the position
// sizer turns it into a bounded quantity.
type Signal struct {
	Action     SignalAction `json:"action"`
	Confidence float64      `json:"confidence"`
	Size       float64      `json:"size"`
	Reason     string       `json:"reason,omitempty"`
}

// SentimentSnapshot is an optional per-symbol datapoint handed to the
// strategy alongside price history.
type SentimentSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Score     float64   `json:"score"`
	Samples   int       `json:"samples"`
}
