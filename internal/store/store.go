package store

import (
	"sort"
	"sync"
	"time"

	"github.com/vk/predictflow/internal/source"
)

// Bar is one aggregated OHLCV candle.
type Bar struct {
	Start  time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Ticks  int
}

// Counts summarizes how much data each bucket holds.
type Counts struct {
	Raw      int `json:"raw"`
	Clean    int `json:"clean"`
	Bars     int `json:"bars"`
	Analyses int `json:"analyses"`
}

type seriesKey struct {
	Source string
	Symbol string
}

type barKey struct {
	Symbol   string
	Interval string
}

// Store is a concurrency-safe in-memory market data store. It holds raw
// ticks per (source, symbol), cleaned ticks per (source, symbol), aggregated
// bars per (symbol, interval), and per-symbol analysis results.
type Store struct {
	mu       sync.RWMutex
	raw      map[seriesKey][]source.Tick
	clean    map[seriesKey][]source.Tick
	bars     map[barKey][]Bar
	analyses map[string]any
}

// New creates an empty store.
func New() *Store {
	return &Store{
		raw:      make(map[seriesKey][]source.Tick),
		clean:    make(map[seriesKey][]source.Tick),
		bars:     make(map[barKey][]Bar),
		analyses: make(map[string]any),
	}
}

// AppendRaw appends fetched ticks to the raw bucket and returns the bucket's
// new size.
func (s *Store) AppendRaw(src, symbol string, ticks []source.Tick) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := seriesKey{Source: src, Symbol: symbol}
	s.raw[k] = append(s.raw[k], ticks...)
	return len(s.raw[k])
}

// Raw returns a copy of the raw ticks for the given series.
func (s *Store) Raw(src, symbol string) []source.Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyTicks(s.raw[seriesKey{Source: src, Symbol: symbol}])
}

// PutClean replaces the cleaned ticks for the given series.
func (s *Store) PutClean(src, symbol string, ticks []source.Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clean[seriesKey{Source: src, Symbol: symbol}] = copyTicks(ticks)
}

// Clean returns a copy of the cleaned ticks for the given series.
func (s *Store) Clean(src, symbol string) []source.Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyTicks(s.clean[seriesKey{Source: src, Symbol: symbol}])
}

// CleanForSymbol merges the cleaned ticks for a symbol across all sources,
// ordered by timestamp.
func (s *Store) CleanForSymbol(symbol string) []source.Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var merged []source.Tick
	for k, ticks := range s.clean {
		if k.Symbol == symbol {
			merged = append(merged, ticks...)
		}
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp.Before(merged[j].Timestamp)
	})
	return merged
}

// PutBars replaces the aggregated bars for (symbol, interval).
func (s *Store) PutBars(symbol, interval string, bars []Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Bar, len(bars))
	copy(out, bars)
	s.bars[barKey{Symbol: symbol, Interval: interval}] = out
}

// Bars returns a copy of the aggregated bars for (symbol, interval).
func (s *Store) Bars(symbol, interval string) []Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bars := s.bars[barKey{Symbol: symbol, Interval: interval}]
	out := make([]Bar, len(bars))
	copy(out, bars)
	return out
}

// PutAnalysis records the analysis result for a symbol.
func (s *Store) PutAnalysis(symbol string, a any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analyses[symbol] = a
}

// Analysis returns the analysis result for a symbol.
func (s *Store) Analysis(symbol string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.analyses[symbol]
	return a, ok
}

// Counts reports the total records held per bucket.
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c Counts
	for _, ticks := range s.raw {
		c.Raw += len(ticks)
	}
	for _, ticks := range s.clean {
		c.Clean += len(ticks)
	}
	for _, bars := range s.bars {
		c.Bars += len(bars)
	}
	c.Analyses = len(s.analyses)
	return c
}

func copyTicks(ticks []source.Tick) []source.Tick {
	out := make([]source.Tick, len(ticks))
	copy(out, ticks)
	return out
}
