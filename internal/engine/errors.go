package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Configuration failures, raised before the simulation starts.
	ErrMissingData   = errors.New("missing market data")
	ErrInvalidConfig = errors.New("invalid run configuration")

	// Ledger state failures. Selling a symbol with no open position is
	// recoverable at loop level: the trade is skipped with a warning.
	ErrNoPosition  = errors.New("no open position for symbol")
	ErrUnknownSide = errors.New("unknown trade side")
)

// TickError wraps a failure during one simulation tick with the
// context needed for diagnosis. The core returns structured errors
// only; message formatting belongs to the surrounding system.
type TickError struct {
	Timestamp time.Time
	Symbol    string
	Err       error
}

func (e *TickError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("tick %s [%s]: %v", e.Timestamp.Format(time.RFC3339), e.Symbol, e.Err)
	}
	return fmt.Sprintf("tick %s: %v", e.Timestamp.Format(time.RFC3339), e.Err)
}

func (e *TickError) Unwrap() error { return e.Err }
