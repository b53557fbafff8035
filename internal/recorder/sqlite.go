package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the API read history while a scheduled run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS screening_runs (
			id          TEXT PRIMARY KEY,
			kind        TEXT NOT NULL,
			source      TEXT,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			universe    INTEGER,
			results     INTEGER,
			failures    INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON screening_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS candidates (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL REFERENCES screening_runs(id),
			ticker       TEXT NOT NULL,
			name         TEXT,
			price        REAL,
			volatility   REAL,
			high_60      REAL,
			volume_ratio REAL,
			vol_spike    INTEGER,
			inst_support INTEGER,
			sector       TEXT,
			turnaround   TEXT,
			per          REAL,
			pbr          REAL,
			rev_growth   REAL,
			eps_growth   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_run ON candidates(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_ticker ON candidates(ticker)`,

		`CREATE TABLE IF NOT EXISTS watchlist_rows (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id     TEXT NOT NULL REFERENCES screening_runs(id),
			code       TEXT NOT NULL,
			ticker     TEXT,
			price      REAL,
			change_pct REAL,
			volume     REAL,
			ratio_3    REAL,
			ratio_20   REAL,
			qualifies  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_watchlist_run ON watchlist_rows(run_id)`,

		`CREATE TABLE IF NOT EXISTS fetch_failures (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id   TEXT NOT NULL REFERENCES screening_runs(id),
			ticker   TEXT,
			kind     TEXT NOT NULL,
			observed INTEGER,
			required INTEGER,
			message  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_run ON fetch_failures(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func nullable(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// RecordRun writes the run and its rows in one transaction.
func (r *SQLiteRecorder) RecordRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	results := len(run.Candidates) + len(run.Watchlist)
	if _, err := tx.Exec(`INSERT INTO screening_runs
		(id, kind, source, started_at, finished_at, universe, results, failures)
		VALUES (?,?,?,?,?,?,?,?)`,
		run.ID.String(), run.Kind, run.Source, run.StartedAt.Unix(), run.FinishedAt.Unix(),
		run.Universe, results, len(run.Failures),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, c := range run.Candidates {
		var sector, turnaround string
		var per, pbr, rev, eps *float64
		if f := c.Fundamentals; f != nil {
			sector, turnaround = f.Sector, string(f.Turnaround)
			per, pbr, rev, eps = f.PER, f.PBR, f.RevGrowth, f.EPSGrowth
		}
		if _, err := tx.Exec(`INSERT INTO candidates
			(run_id, ticker, name, price, volatility, high_60, volume_ratio, vol_spike, inst_support,
			 sector, turnaround, per, pbr, rev_growth, eps_growth)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			run.ID.String(), c.Symbol, c.Name, c.Price, c.Volatility, c.High60, c.VolumeRatio,
			boolInt(c.VolSpike), boolInt(c.InstSupport), sector, turnaround,
			nullable(per), nullable(pbr), nullable(rev), nullable(eps),
		); err != nil {
			return fmt.Errorf("insert candidate %s: %w", c.Symbol, err)
		}
	}

	for _, w := range run.Watchlist {
		if _, err := tx.Exec(`INSERT INTO watchlist_rows
			(run_id, code, ticker, price, change_pct, volume, ratio_3, ratio_20, qualifies)
			VALUES (?,?,?,?,?,?,?,?,?)`,
			run.ID.String(), w.Code, w.Symbol, w.Price, w.ChangePct, w.Volume,
			w.Ratio3, w.Ratio20, boolInt(w.Qualifies),
		); err != nil {
			return fmt.Errorf("insert watchlist row %s: %w", w.Code, err)
		}
	}

	for _, f := range run.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		if _, err := tx.Exec(`INSERT INTO fetch_failures
			(run_id, ticker, kind, observed, required, message)
			VALUES (?,?,?,?,?,?)`,
			run.ID.String(), f.Symbol, string(f.Kind), f.Observed, f.Required, msg,
		); err != nil {
			return fmt.Errorf("insert failure: %w", err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns the latest runs, newest first.
func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`SELECT id, kind, source, started_at, finished_at, universe, results, failures
		FROM screening_runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var source sql.NullString
		var started, finished int64
		if err := rows.Scan(&s.ID, &s.Kind, &source, &started, &finished, &s.Universe, &s.Results, &s.Failures); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.Source = source.String
		s.StartedAt = time.Unix(started, 0)
		s.FinishedAt = time.Unix(finished, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
