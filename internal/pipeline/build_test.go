package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/predictflow/internal/config"
	"github.com/vk/predictflow/internal/scheduler"
	"github.com/vk/predictflow/internal/source"
	"github.com/vk/predictflow/internal/store"
	"github.com/vk/predictflow/internal/task"
)

// fakeSource serves canned ticks per symbol and can be told to fail.
type fakeSource struct {
	name  string
	ticks map[string][]source.Tick
	fail  map[string]error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, symbol string, w source.Window) ([]source.Tick, error) {
	if err := f.fail[symbol]; err != nil {
		return nil, err
	}
	return f.ticks[symbol], nil
}

func testConfig(t *testing.T, src string) *config.Pipeline {
	t.Helper()
	cfg, err := config.Parse(context.Background(), []byte(src), "test.hcl")
	require.NoError(t, err)
	return cfg
}

func series(symbol string, n int) []source.Tick {
	out := make([]source.Tick, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, source.Tick{
			Symbol:    symbol,
			Timestamp: base.Add(time.Duration(i) * 10 * time.Minute),
			Price:     100 + float64(i),
			Volume:    1,
		})
	}
	return out
}

func TestBuild(t *testing.T) {
	cfg := testConfig(t, `
pipeline {
  symbols   = ["BTCUSD", "ETHUSD"]
  intervals = ["1h", "1d"]
  source "coincap" { base_url = "https://x" }
  source "kraken"  { base_url = "https://y" }
}
`)
	deps := Deps{
		Store: store.New(),
		Sources: map[string]source.Source{
			"coincap": &fakeSource{name: "coincap"},
			"kraken":  &fakeSource{name: "kraken"},
		},
	}

	tasks, err := Build(cfg, deps)
	require.NoError(t, err)

	// 2 sources × 2 symbols × (fetch, clean, store) + 2 symbols × 2 intervals
	// aggregates + 2 analyzes + health.
	assert.Len(t, tasks, 19)

	byID := make(map[string]*task.Task, len(tasks))
	for _, tsk := range tasks {
		byID[tsk.ID] = tsk
	}

	fetch := byID["fetch_coincap_BTCUSD"]
	require.NotNil(t, fetch)
	assert.Empty(t, fetch.Deps)
	assert.False(t, fetch.Critical)

	clean := byID["clean_coincap_BTCUSD"]
	require.NotNil(t, clean)
	assert.Equal(t, []string{"fetch_coincap_BTCUSD"}, clean.Deps)
	assert.True(t, clean.Critical)

	st := byID["store_kraken_ETHUSD"]
	require.NotNil(t, st)
	assert.Equal(t, []string{"clean_kraken_ETHUSD"}, st.Deps)
	assert.True(t, st.Critical)

	agg := byID["aggregate_BTCUSD_1h"]
	require.NotNil(t, agg)
	assert.ElementsMatch(t, []string{"store_coincap_BTCUSD", "store_kraken_BTCUSD"}, agg.Deps)
	assert.False(t, agg.Critical)

	analyze := byID["analyze_BTCUSD"]
	require.NotNil(t, analyze)
	assert.ElementsMatch(t, []string{"aggregate_BTCUSD_1h", "aggregate_BTCUSD_1d"}, analyze.Deps)

	health := byID["health"]
	require.NotNil(t, health)
	assert.ElementsMatch(t, []string{"analyze_BTCUSD", "analyze_ETHUSD"}, health.Deps)

	// The configured policy lands on every task.
	policy, err := cfg.TaskPolicy()
	require.NoError(t, err)
	assert.Equal(t, policy, fetch.Policy)
	assert.Equal(t, policy, health.Policy)
}

func TestBuildErrors(t *testing.T) {
	cfg := testConfig(t, `
pipeline {
  symbols = ["BTCUSD"]
  source "coincap" { base_url = "https://x" }
}
`)

	_, err := Build(cfg, Deps{Sources: map[string]source.Source{"coincap": &fakeSource{name: "coincap"}}})
	assert.ErrorContains(t, err, "requires a store")

	_, err = Build(cfg, Deps{Store: store.New()})
	assert.ErrorContains(t, err, `no source registered for "coincap"`)
}

func TestPipelineEndToEnd(t *testing.T) {
	cfg := testConfig(t, `
pipeline {
  symbols   = ["BTCUSD", "ETHUSD"]
  intervals = ["1h"]
  defaults {
    retry_base_delay = "1ms"
  }
  source "coincap" { base_url = "https://x" }
}
`)
	st := store.New()
	src := &fakeSource{
		name: "coincap",
		ticks: map[string][]source.Tick{
			"BTCUSD": series("BTCUSD", 12),
			"ETHUSD": series("ETHUSD", 8),
		},
	}

	tasks, err := Build(cfg, Deps{Store: st, Sources: map[string]source.Source{"coincap": src}})
	require.NoError(t, err)

	sched := scheduler.New()
	require.NoError(t, sched.RegisterMany(tasks...))

	report, err := sched.Run(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, report.Success, "report: %+v", report)

	assert.Len(t, st.Raw("coincap", "BTCUSD"), 12)
	assert.Len(t, st.Clean("coincap", "ETHUSD"), 8)
	assert.NotEmpty(t, st.Bars("BTCUSD", "1h"))

	a, ok := st.Analysis("BTCUSD")
	require.True(t, ok)
	analysis, ok := a.(Analysis)
	require.True(t, ok)
	assert.Equal(t, "BTCUSD", analysis.Symbol)
	assert.Equal(t, "1h", analysis.Interval)
	assert.Positive(t, analysis.TotalReturn)

	healthRes := report.Tasks["health"]
	require.NotNil(t, healthRes)
	counts, ok := healthRes.Output.(store.Counts)
	require.True(t, ok)
	assert.Equal(t, 20, counts.Raw)
	assert.Equal(t, 2, counts.Analyses)
}

func TestPipelineFetchFailureIsolatesSymbol(t *testing.T) {
	cfg := testConfig(t, `
pipeline {
  symbols   = ["BTCUSD", "ETHUSD"]
  intervals = ["1h"]
  defaults {
    max_retries      = 1
    retry_base_delay = "1ms"
  }
  source "coincap" { base_url = "https://x" }
}
`)
	st := store.New()
	src := &fakeSource{
		name:  "coincap",
		ticks: map[string][]source.Tick{"ETHUSD": series("ETHUSD", 8)},
		fail:  map[string]error{"BTCUSD": errors.New("rate limited")},
	}

	tasks, err := Build(cfg, Deps{Store: st, Sources: map[string]source.Source{"coincap": src}})
	require.NoError(t, err)

	sched := scheduler.New()
	require.NoError(t, sched.RegisterMany(tasks...))

	report, err := sched.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, report.Success)

	// The failing symbol's whole chain is poisoned.
	assert.Equal(t, task.StatusFailed, report.Tasks["fetch_coincap_BTCUSD"].Status)
	// Fetch retries before giving up.
	assert.Equal(t, 2, report.Tasks["fetch_coincap_BTCUSD"].Attempts)
	for _, id := range []string{"clean_coincap_BTCUSD", "store_coincap_BTCUSD", "aggregate_BTCUSD_1h", "analyze_BTCUSD", "health"} {
		assert.Equal(t, task.StatusSkipped, report.Tasks[id].Status, id)
	}

	// The healthy symbol still flows end to end.
	assert.Equal(t, task.StatusSuccess, report.Tasks["analyze_ETHUSD"].Status)
	_, ok := st.Analysis("ETHUSD")
	assert.True(t, ok)
	_, ok = st.Analysis("BTCUSD")
	assert.False(t, ok)
}

func TestPipelineEmptyFetchFails(t *testing.T) {
	cfg := testConfig(t, `
pipeline {
  symbols   = ["BTCUSD"]
  intervals = ["1h"]
  defaults {
    max_retries      = 0
    retry_base_delay = "1ms"
  }
  source "coincap" { base_url = "https://x" }
}
`)
	st := store.New()
	src := &fakeSource{name: "coincap"}

	tasks, err := Build(cfg, Deps{Store: st, Sources: map[string]source.Source{"coincap": src}})
	require.NoError(t, err)

	sched := scheduler.New()
	require.NoError(t, sched.RegisterMany(tasks...))

	report, err := sched.Run(context.Background(), 1)
	require.NoError(t, err)

	res := report.Tasks["fetch_coincap_BTCUSD"]
	assert.Equal(t, task.StatusFailed, res.Status)
	assert.ErrorContains(t, res.Err, "returned no ticks")
}

func TestPipelineCriticalCleanFailureHalts(t *testing.T) {
	cfg := testConfig(t, `
pipeline {
  symbols   = ["BTCUSD", "ETHUSD"]
  intervals = ["1h"]
  defaults {
    max_retries      = 0
    retry_base_delay = "1ms"
  }
  source "coincap" { base_url = "https://x" }
}
`)
	st := store.New()
	// Every BTCUSD tick is garbage, so cleaning rejects the whole series and
	// the critical clean task fails.
	bad := make([]source.Tick, 4)
	for i := range bad {
		bad[i] = source.Tick{Symbol: "BTCUSD", Timestamp: base.Add(time.Duration(i) * time.Minute), Price: -1, Volume: 1}
	}
	src := &fakeSource{
		name: "coincap",
		ticks: map[string][]source.Tick{
			"BTCUSD": bad,
			"ETHUSD": series("ETHUSD", 8),
		},
	}

	tasks, err := Build(cfg, Deps{Store: st, Sources: map[string]source.Source{"coincap": src}})
	require.NoError(t, err)

	sched := scheduler.New()
	require.NoError(t, sched.RegisterMany(tasks...))

	// A single slot serializes the run, so nothing downstream of the critical
	// failure has started yet.
	report, err := sched.Run(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, report.Success)
	assert.Equal(t, task.StatusFailed, report.Tasks["clean_coincap_BTCUSD"].Status)
	assert.Equal(t, 1, report.Failed)
	// Everything still pending at the halt is skipped, the healthy symbol's
	// chain included.
	total := len(report.Tasks)
	assert.Equal(t, total, report.Succeeded+report.Failed+report.Skipped)
	assert.Equal(t, task.StatusSkipped, report.Tasks["health"].Status)

	halted := 0
	for _, res := range report.Tasks {
		if res.Status == task.StatusSkipped {
			halted++
		}
	}
	assert.Equal(t, report.Skipped, halted)
}

func TestBuildTaskNaming(t *testing.T) {
	cfg := testConfig(t, `
pipeline {
  symbols   = ["BTCUSD"]
  intervals = ["15m", "1d"]
  source "coincap" { base_url = "https://x" }
}
`)
	tasks, err := Build(cfg, Deps{Store: store.New(), Sources: map[string]source.Source{"coincap": &fakeSource{name: "coincap"}}})
	require.NoError(t, err)

	var ids []string
	for _, tsk := range tasks {
		ids = append(ids, tsk.ID)
	}
	want := []string{
		"fetch_coincap_BTCUSD",
		"clean_coincap_BTCUSD",
		"store_coincap_BTCUSD",
		"aggregate_BTCUSD_15m",
		"aggregate_BTCUSD_1d",
		"analyze_BTCUSD",
		"health",
	}
	assert.Equal(t, want, ids)

	for _, tsk := range tasks {
		assert.NotEmpty(t, tsk.Name, tsk.ID)
		assert.NotContains(t, tsk.ID, " ")
	}
}
