package recorder

import (
	"time"

	"github.com/google/uuid"

	"RisingStock/internal/model"
)

// Run kinds.
const (
	KindScreen    = "screen"
	KindWatchlist = "watchlist"
	KindRefresh   = "refresh"
)

// Run holds everything recorded for one pipeline execution.
type Run struct {
	ID         uuid.UUID
	Kind       string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Universe   int
	Candidates []model.ViewRow
	Watchlist  []model.WatchlistRow
	Failures   []model.Failure
}

// NewRun starts a run record of the given kind.
func NewRun(kind, source string) *Run {
	return &Run{ID: uuid.New(), Kind: kind, Source: source, StartedAt: time.Now()}
}

// RunSummary is one row of the run history.
type RunSummary struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Universe   int       `json:"universe"`
	Results    int       `json:"results"`
	Failures   int       `json:"failures"`
}

// Recorder persists run history for later analysis.
type Recorder interface {
	RecordRun(run *Run) error
	RecentRuns(limit int) ([]RunSummary, error)
	Close() error
}
