package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/predictflow/internal/source"
	"github.com/vk/predictflow/internal/store"
)

var base = time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

func tk(offset time.Duration, price, volume float64) source.Tick {
	return source.Tick{Symbol: "BTCUSD", Timestamp: base.Add(offset), Price: price, Volume: volume}
}

func TestCleanTicks(t *testing.T) {
	t.Run("rejects unusable ticks", func(t *testing.T) {
		in := []source.Tick{
			tk(0, 100, 1),
			{Symbol: "BTCUSD", Price: 100, Volume: 1},          // zero timestamp
			tk(time.Minute, 0, 1),                              // zero price
			tk(2*time.Minute, -5, 1),                           // negative price
			tk(3*time.Minute, math.NaN(), 1),                   // NaN price
			tk(4*time.Minute, math.Inf(1), 1),                  // infinite price
			tk(5*time.Minute, 100, -1),                         // negative volume
			tk(6*time.Minute, 100, math.NaN()),                 // NaN volume
			tk(7*time.Minute, 101, 2),
		}

		out := CleanTicks(in)
		require.Len(t, out, 2)
		assert.Equal(t, 100.0, out[0].Price)
		assert.Equal(t, 101.0, out[1].Price)
	})

	t.Run("orders by timestamp", func(t *testing.T) {
		in := []source.Tick{tk(2*time.Minute, 3, 1), tk(0, 1, 1), tk(time.Minute, 2, 1)}
		out := CleanTicks(in)
		require.Len(t, out, 3)
		assert.Equal(t, 1.0, out[0].Price)
		assert.Equal(t, 2.0, out[1].Price)
		assert.Equal(t, 3.0, out[2].Price)
	})

	t.Run("duplicate timestamps keep the latest observation", func(t *testing.T) {
		in := []source.Tick{tk(0, 1, 1), tk(0, 2, 1), tk(0, 3, 1), tk(time.Minute, 4, 1)}
		out := CleanTicks(in)
		require.Len(t, out, 2)
		assert.Equal(t, 3.0, out[0].Price)
		assert.Equal(t, 4.0, out[1].Price)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, CleanTicks(nil))
	})
}

func TestAggregate(t *testing.T) {
	ticks := []source.Tick{
		tk(0, 100, 1),
		tk(10*time.Minute, 110, 2),
		tk(50*time.Minute, 90, 1),
		tk(time.Hour, 95, 3),
		tk(time.Hour+30*time.Minute, 105, 1),
	}

	bars := Aggregate(ticks, time.Hour)
	require.Len(t, bars, 2)

	first := bars[0]
	assert.True(t, first.Start.Equal(base))
	assert.Equal(t, 100.0, first.Open)
	assert.Equal(t, 110.0, first.High)
	assert.Equal(t, 90.0, first.Low)
	assert.Equal(t, 90.0, first.Close)
	assert.Equal(t, 4.0, first.Volume)
	assert.Equal(t, 3, first.Ticks)

	second := bars[1]
	assert.True(t, second.Start.Equal(base.Add(time.Hour)))
	assert.Equal(t, 95.0, second.Open)
	assert.Equal(t, 105.0, second.Close)
	assert.Equal(t, 2, second.Ticks)

	t.Run("empty input produces no bars", func(t *testing.T) {
		assert.Empty(t, Aggregate(nil, time.Hour))
	})

	t.Run("sparse ticks skip empty buckets", func(t *testing.T) {
		sparse := []source.Tick{tk(0, 1, 1), tk(5*time.Hour, 2, 1)}
		got := Aggregate(sparse, time.Hour)
		require.Len(t, got, 2)
		assert.True(t, got[1].Start.Equal(base.Add(5*time.Hour)))
	})
}

func TestAnalyze(t *testing.T) {
	bars := []store.Bar{
		{Start: base, Open: 100, High: 120, Low: 95, Close: 110, Volume: 10},
		{Start: base.Add(time.Hour), Open: 110, High: 115, Low: 80, Close: 88, Volume: 5},
		{Start: base.Add(2 * time.Hour), Open: 88, High: 130, Low: 85, Close: 125, Volume: 7},
	}

	a := Analyze("BTCUSD", "1h", bars)
	assert.Equal(t, "BTCUSD", a.Symbol)
	assert.Equal(t, "1h", a.Interval)
	assert.Equal(t, 3, a.Bars)
	assert.InDelta(t, 0.25, a.TotalReturn, 1e-9)
	assert.Equal(t, 130.0, a.High)
	assert.Equal(t, 80.0, a.Low)
	assert.Equal(t, 22.0, a.Volume)
	// Peak close 110 drawing down to 88.
	assert.InDelta(t, (110.0-88.0)/110.0, a.MaxDrawdown, 1e-9)
}
