package source

import (
	"context"
	"time"
)

// Tick is one observed market data point.
type Tick struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"ts"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
}

// Window is the half-open time range [Start, End) a fetch covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// LastDays returns a window covering the given number of days back from now.
func LastDays(days int) Window {
	end := time.Now().UTC()
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// Source is a market-data provider. The orchestrator treats fetches as
// opaque units of work; implementations own their transport, encoding, and
// error semantics.
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbol string, w Window) ([]Tick, error)
}
