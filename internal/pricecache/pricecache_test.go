package pricecache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RisingStock/internal/collector"
	"RisingStock/internal/model"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
}

// daily builds one bar per calendar day in [from, to] with close = base + index.
func daily(from, to time.Time, base float64) []model.OHLCV {
	var out []model.OHLCV
	i := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		c := base + float64(i)
		out = append(out, model.OHLCV{Time: d, Open: c, High: c, Low: c, Close: c, Volume: 100})
		i++
	}
	return out
}

func newCache(t *testing.T, m *collector.MockFetcher, now time.Time) (*Cache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.json.zst")
	c := New(path, m, 30, zerolog.Nop())
	c.Now = func() time.Time { return now }
	c.store.Now = c.Now
	return c, path
}

func TestMergeFetchedWinsOnOverlap(t *testing.T) {
	existing := []model.OHLCV{
		{Time: day(3, 1), Close: 1},
		{Time: day(3, 2), Close: 2},
	}
	fetched := []model.OHLCV{
		{Time: day(3, 2).Add(5 * time.Hour), Close: 20},
		{Time: day(3, 3), Close: 3},
	}
	got := Merge(existing, fetched)
	require.Len(t, got, 3)
	assert.Equal(t, []float64{1, 20, 3}, model.Closes(got))
	assert.Equal(t, day(3, 2), got[1].Time)
}

func TestRefreshNewSymbolsFetchFullLookback(t *testing.T) {
	now := day(3, 31).Add(10 * time.Hour)
	m := &collector.MockFetcher{Daily: map[string][]model.OHLCV{
		"AAPL": daily(day(1, 1), day(3, 31), 10),
		"MSFT": daily(day(1, 1), day(3, 31), 20),
	}}
	c, _ := newCache(t, m, now)

	snap, report, err := c.Refresh(context.Background(), []string{"AAPL", "MSFT", "AAPL"})
	require.NoError(t, err)
	assert.Zero(t, report.Len())

	require.Len(t, m.HistoryCalls, 1, "one batched call for one start date")
	call := m.HistoryCalls[0]
	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, call.Symbols)
	assert.Equal(t, day(3, 1), call.Start)
	assert.Equal(t, day(3, 31), call.End)
	assert.Len(t, snap.Bars("AAPL"), 31)

	reloaded := c.Load()
	assert.Equal(t, snap.Series, reloaded.Series)
}

func TestRefreshGroupsIncrementalWindowsByStart(t *testing.T) {
	m := &collector.MockFetcher{Daily: map[string][]model.OHLCV{
		"AAA": daily(day(1, 1), day(3, 31), 1),
		"BBB": daily(day(1, 1), day(3, 31), 1),
		"CCC": daily(day(1, 1), day(3, 31), 1),
	}}
	c, _ := newCache(t, m, day(3, 20))
	_, _, err := c.Refresh(context.Background(), []string{"AAA", "BBB"})
	require.NoError(t, err)

	c.Now = func() time.Time { return day(3, 25) }
	_, _, err = c.Refresh(context.Background(), []string{"CCC"})
	require.NoError(t, err)

	m.HistoryCalls = nil
	c.Now = func() time.Time { return day(3, 31) }
	snap, report, err := c.Refresh(context.Background(), []string{"AAA", "BBB", "CCC"})
	require.NoError(t, err)
	assert.Zero(t, report.Len())

	require.Len(t, m.HistoryCalls, 2)
	assert.Equal(t, day(3, 21), m.HistoryCalls[0].Start)
	assert.ElementsMatch(t, []string{"AAA", "BBB"}, m.HistoryCalls[0].Symbols)
	assert.Equal(t, day(3, 26), m.HistoryCalls[1].Start)
	assert.Equal(t, []string{"CCC"}, m.HistoryCalls[1].Symbols)

	for _, sym := range []string{"AAA", "BBB", "CCC"} {
		last, ok := snap.LastDate(sym)
		require.True(t, ok)
		assert.Equal(t, day(3, 31), last, sym)
	}
}

func TestRefreshIsIdempotentWithoutNewSessions(t *testing.T) {
	// Provider data ends Friday 27th; refreshing on the weekend finds nothing new.
	m := &collector.MockFetcher{Daily: map[string][]model.OHLCV{
		"AAPL": daily(day(2, 1), day(3, 27), 10),
	}}
	c, path := newCache(t, m, day(3, 28))
	_, _, err := c.Refresh(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	c.Now = func() time.Time { return day(3, 29) }
	_, report, err := c.Refresh(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Zero(t, report.Len())
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRefreshSkipsUpToDateSymbols(t *testing.T) {
	m := &collector.MockFetcher{Daily: map[string][]model.OHLCV{"AAPL": daily(day(3, 1), day(3, 31), 1)}}
	c, _ := newCache(t, m, day(3, 31))
	_, _, err := c.Refresh(context.Background(), []string{"AAPL"})
	require.NoError(t, err)

	m.HistoryCalls = nil
	_, _, err = c.Refresh(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Empty(t, m.HistoryCalls)
}

func TestRefreshReportsFailuresAndContinues(t *testing.T) {
	m := &collector.MockFetcher{
		Daily:  map[string][]model.OHLCV{"GOOD": daily(day(3, 1), day(3, 31), 1)},
		Errors: map[string]error{"DOWN": errors.New("timeout")},
	}
	c, _ := newCache(t, m, day(3, 31))
	snap, report, err := c.Refresh(context.Background(), []string{"DOWN", "GOOD", "NONE"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"DOWN", "NONE"}, report.Symbols(model.SourceUnavailable))
	assert.Equal(t, []string{"GOOD"}, snap.Symbols())
}

func TestLoadCorruptSnapshotStartsEmpty(t *testing.T) {
	m := &collector.MockFetcher{Daily: map[string][]model.OHLCV{"AAPL": daily(day(3, 1), day(3, 31), 1)}}
	c, path := newCache(t, m, day(3, 31))
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	assert.Empty(t, c.Load().Series)

	snap, report, err := c.Refresh(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Zero(t, report.Len(), "an unreadable snapshot is not a reported failure")
	assert.Len(t, snap.Bars("AAPL"), 31)
}
