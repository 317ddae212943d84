package pipeline

import (
	"context"
	"fmt"

	"github.com/vk/predictflow/internal/config"
	"github.com/vk/predictflow/internal/ctxlog"
	"github.com/vk/predictflow/internal/source"
	"github.com/vk/predictflow/internal/store"
	"github.com/vk/predictflow/internal/task"
)

// FetchSummary is the opaque payload a fetch task returns.
type FetchSummary struct {
	Source  string
	Symbol  string
	Fetched int
	RawSize int
}

// CleanSummary is the opaque payload a clean task returns.
type CleanSummary struct {
	Source   string
	Symbol   string
	RawCount int
	Cleaned  int
}

// StoreSummary is the opaque payload a store verification task returns.
type StoreSummary struct {
	Source  string
	Symbol  string
	Records int
}

// AggregateSummary is the opaque payload an aggregate task returns.
type AggregateSummary struct {
	Symbol   string
	Interval string
	Bars     int
	BaseRows int
}

func fetchFn(st *store.Store, src source.Source, symbol string, windowDays int) task.Fn {
	return func(ctx context.Context) (any, error) {
		ticks, err := src.Fetch(ctx, symbol, source.LastDays(windowDays))
		if err != nil {
			return nil, err
		}
		if len(ticks) == 0 {
			return nil, fmt.Errorf("source %s returned no ticks for %s", src.Name(), symbol)
		}
		total := st.AppendRaw(src.Name(), symbol, ticks)
		return FetchSummary{Source: src.Name(), Symbol: symbol, Fetched: len(ticks), RawSize: total}, nil
	}
}

func cleanFn(st *store.Store, src, symbol string) task.Fn {
	return func(ctx context.Context) (any, error) {
		raw := st.Raw(src, symbol)
		if len(raw) == 0 {
			return nil, fmt.Errorf("no raw ticks to clean for %s/%s", src, symbol)
		}
		cleaned := CleanTicks(raw)
		if len(cleaned) == 0 {
			return nil, fmt.Errorf("all %d raw ticks for %s/%s were rejected", len(raw), src, symbol)
		}
		st.PutClean(src, symbol, cleaned)
		ctxlog.FromContext(ctx).Debug("Cleaned ticks.", "source", src, "symbol", symbol, "raw", len(raw), "clean", len(cleaned))
		return CleanSummary{Source: src, Symbol: symbol, RawCount: len(raw), Cleaned: len(cleaned)}, nil
	}
}

// storeFn verifies that the cleaned series actually landed in the store
// before anything downstream is allowed to read it.
func storeFn(st *store.Store, src, symbol string) task.Fn {
	return func(ctx context.Context) (any, error) {
		n := len(st.Clean(src, symbol))
		if n == 0 {
			return nil, fmt.Errorf("storage verification failed for %s/%s: no cleaned records", src, symbol)
		}
		return StoreSummary{Source: src, Symbol: symbol, Records: n}, nil
	}
}

func aggregateFn(st *store.Store, symbol, interval string) task.Fn {
	return func(ctx context.Context) (any, error) {
		ticks := st.CleanForSymbol(symbol)
		if len(ticks) == 0 {
			return nil, fmt.Errorf("no cleaned ticks found for %s", symbol)
		}
		// Interval syntax was validated with the config.
		d, err := config.ParseInterval(interval)
		if err != nil {
			return nil, err
		}
		bars := Aggregate(ticks, d)
		if len(bars) == 0 {
			return nil, fmt.Errorf("aggregation produced no %s bars for %s", interval, symbol)
		}
		st.PutBars(symbol, interval, bars)
		return AggregateSummary{Symbol: symbol, Interval: interval, Bars: len(bars), BaseRows: len(ticks)}, nil
	}
}

func analyzeFn(st *store.Store, symbol, interval string) task.Fn {
	return func(ctx context.Context) (any, error) {
		bars := st.Bars(symbol, interval)
		if len(bars) == 0 {
			return nil, fmt.Errorf("no %s bars found for %s", interval, symbol)
		}
		a := Analyze(symbol, interval, bars)
		st.PutAnalysis(symbol, a)
		ctxlog.FromContext(ctx).Debug("Analysis complete.", "symbol", symbol, "total_return", a.TotalReturn)
		return a, nil
	}
}

func healthFn(st *store.Store) task.Fn {
	return func(ctx context.Context) (any, error) {
		counts := st.Counts()
		ctxlog.FromContext(ctx).Info("🩺 Pipeline data health",
			"raw", counts.Raw,
			"clean", counts.Clean,
			"bars", counts.Bars,
			"analyses", counts.Analyses,
		)
		return counts, nil
	}
}
