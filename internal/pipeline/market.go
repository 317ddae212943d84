package pipeline

import (
	"math"
	"sort"
	"time"

	"github.com/vk/predictflow/internal/source"
	"github.com/vk/predictflow/internal/store"
)

// CleanTicks filters out unusable ticks (non-finite or non-positive prices,
// negative volumes, zero timestamps), orders the rest by timestamp, and
// collapses duplicate timestamps keeping the latest observation.
func CleanTicks(ticks []source.Tick) []source.Tick {
	kept := make([]source.Tick, 0, len(ticks))
	for _, t := range ticks {
		if t.Timestamp.IsZero() {
			continue
		}
		if math.IsNaN(t.Price) || math.IsInf(t.Price, 0) || t.Price <= 0 {
			continue
		}
		if math.IsNaN(t.Volume) || t.Volume < 0 {
			continue
		}
		kept = append(kept, t)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Timestamp.Before(kept[j].Timestamp)
	})
	out := kept[:0]
	for _, t := range kept {
		if len(out) > 0 && out[len(out)-1].Timestamp.Equal(t.Timestamp) {
			out[len(out)-1] = t
			continue
		}
		out = append(out, t)
	}
	return out
}

// Aggregate buckets ticks into OHLCV bars of the given interval. Ticks must
// be ordered by timestamp; empty buckets produce no bar.
func Aggregate(ticks []source.Tick, interval time.Duration) []store.Bar {
	var bars []store.Bar
	for _, t := range ticks {
		start := t.Timestamp.UTC().Truncate(interval)
		if len(bars) == 0 || !bars[len(bars)-1].Start.Equal(start) {
			bars = append(bars, store.Bar{
				Start: start,
				Open:  t.Price,
				High:  t.Price,
				Low:   t.Price,
			})
		}
		b := &bars[len(bars)-1]
		b.High = math.Max(b.High, t.Price)
		b.Low = math.Min(b.Low, t.Price)
		b.Close = t.Price
		b.Volume += t.Volume
		b.Ticks++
	}
	return bars
}

// Analysis is the summary produced by an analyze task.
type Analysis struct {
	Symbol      string
	Interval    string
	Bars        int
	TotalReturn float64
	High        float64
	Low         float64
	MaxDrawdown float64
	Volume      float64
}

// Analyze computes the per-symbol summary over a bar series.
func Analyze(symbol, interval string, bars []store.Bar) Analysis {
	a := Analysis{
		Symbol:   symbol,
		Interval: interval,
		Bars:     len(bars),
		High:     bars[0].High,
		Low:      bars[0].Low,
	}
	if bars[0].Open != 0 {
		a.TotalReturn = (bars[len(bars)-1].Close - bars[0].Open) / bars[0].Open
	}
	peak := bars[0].Close
	for _, b := range bars {
		a.High = math.Max(a.High, b.High)
		a.Low = math.Min(a.Low, b.Low)
		a.Volume += b.Volume
		peak = math.Max(peak, b.Close)
		if peak > 0 {
			a.MaxDrawdown = math.Max(a.MaxDrawdown, (peak-b.Close)/peak)
		}
	}
	return a
}
