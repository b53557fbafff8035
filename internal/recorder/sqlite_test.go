package recorder

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RisingStock/internal/model"
)

func openTest(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "db", "runs.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecordRunAndHistory(t *testing.T) {
	r := openTest(t)
	per := 12.5

	screen := NewRun(KindScreen, "stock_list")
	screen.StartedAt = time.Unix(1000, 0)
	screen.Universe = 3
	screen.Candidates = []model.ViewRow{
		{Candidate: model.Candidate{Symbol: "AAA", Price: 10, VolSpike: true}, Name: "Alpha", InstSupport: true,
			Fundamentals: &model.Fundamentals{Sector: "Tech", Turnaround: model.ProfitGrowth, PER: &per}},
		{Candidate: model.Candidate{Symbol: "BBB", Price: 5}, Name: "BBB"},
	}
	screen.Failures = []model.Failure{
		{Symbol: "CCC", Kind: model.InsufficientHistory, Observed: 10, Required: 60},
		{Symbol: "DDD", Kind: model.SourceUnavailable, Err: errors.New("timeout")},
	}
	require.NoError(t, r.RecordRun(screen))

	watch := NewRun(KindWatchlist, "manual")
	watch.StartedAt = time.Unix(2000, 0)
	watch.Watchlist = []model.WatchlistRow{{Code: "005930", Symbol: "005930.KS", Ratio20: 180, Qualifies: true}}
	require.NoError(t, r.RecordRun(watch))

	runs, err := r.RecentRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, KindWatchlist, runs[0].Kind)
	assert.Equal(t, 1, runs[0].Results)
	assert.Equal(t, screen.ID.String(), runs[1].ID)
	assert.Equal(t, 2, runs[1].Results)
	assert.Equal(t, 2, runs[1].Failures)
	assert.Equal(t, 3, runs[1].Universe)

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM candidates WHERE run_id = ? AND per IS NULL`, screen.ID.String()).Scan(&n))
	assert.Equal(t, 1, n)
	var msg string
	require.NoError(t, r.db.QueryRow(`SELECT message FROM fetch_failures WHERE ticker = 'DDD'`).Scan(&msg))
	assert.Equal(t, "timeout", msg)
}

func TestRecordRunDuplicateIDRollsBack(t *testing.T) {
	r := openTest(t)
	run := NewRun(KindRefresh, "")
	require.NoError(t, r.RecordRun(run))
	run.Failures = []model.Failure{{Kind: model.Unauthorized}}
	assert.Error(t, r.RecordRun(run))

	var n int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM fetch_failures`).Scan(&n))
	assert.Zero(t, n)
}

func TestNoopRecorder(t *testing.T) {
	var rec Recorder = NewNoopRecorder()
	assert.NoError(t, rec.RecordRun(NewRun(KindScreen, "")))
	runs, err := rec.RecentRuns(5)
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, rec.Close())
}
