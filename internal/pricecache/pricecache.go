// Package pricecache keeps an incrementally refreshed daily price history per symbol.
package pricecache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"RisingStock/internal/collector"
	"RisingStock/internal/model"
	"RisingStock/internal/snapshot"
)

// SchemaVersion of the persisted price snapshot.
const SchemaVersion = 1

const snapshotKind = "price_history"

// Snapshot maps resolved symbols to their date-ordered bars.
type Snapshot struct {
	Series    map[string][]model.OHLCV `json:"series"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Series: make(map[string][]model.OHLCV)}
}

// Symbols returns the cached symbols in sorted order.
func (s *Snapshot) Symbols() []string {
	out := make([]string, 0, len(s.Series))
	for sym := range s.Series {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Bars returns the cached bars of symbol.
func (s *Snapshot) Bars(symbol string) []model.OHLCV {
	return s.Series[symbol]
}

// LastDate returns the date of the most recent cached bar.
func (s *Snapshot) LastDate(symbol string) (time.Time, bool) {
	bars := s.Series[symbol]
	if len(bars) == 0 {
		return time.Time{}, false
	}
	return bars[len(bars)-1].Time, true
}

// Merge combines existing and fetched bars into one date-ordered series with
// unique dates. On overlapping dates the fetched bar wins.
func Merge(existing, fetched []model.OHLCV) []model.OHLCV {
	byDay := make(map[time.Time]model.OHLCV, len(existing)+len(fetched))
	for _, b := range existing {
		byDay[model.Day(b.Time)] = b
	}
	for _, b := range fetched {
		b.Time = model.Day(b.Time)
		byDay[b.Time] = b
	}
	out := make([]model.OHLCV, 0, len(byDay))
	for d, b := range byDay {
		b.Time = d
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// Cache owns the persisted price snapshot and refreshes it from a HistoryFetcher.
type Cache struct {
	store        *snapshot.Store
	fetcher      collector.HistoryFetcher
	lookbackDays int
	Now          func() time.Time
	log          zerolog.Logger
}

// New creates a price cache persisted at path.
func New(path string, fetcher collector.HistoryFetcher, lookbackDays int, log zerolog.Logger) *Cache {
	if lookbackDays <= 0 {
		lookbackDays = 365
	}
	return &Cache{
		store:        snapshot.NewStore(path, snapshotKind),
		fetcher:      fetcher,
		lookbackDays: lookbackDays,
		Now:          time.Now,
		log:          log.With().Str("component", "pricecache").Logger(),
	}
}

// Path returns the snapshot file location.
func (c *Cache) Path() string { return c.store.Path }

func (c *Cache) load() (*Snapshot, error) {
	snap := NewSnapshot()
	if _, err := c.store.Load(snap); err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return NewSnapshot(), nil
		}
		return NewSnapshot(), err
	}
	if snap.Series == nil {
		snap.Series = make(map[string][]model.OHLCV)
	}
	return snap, nil
}

// Load returns the persisted snapshot. A missing or unreadable snapshot yields
// an empty one.
func (c *Cache) Load() *Snapshot {
	snap, err := c.load()
	if err != nil {
		c.log.Debug().Err(err).Msg("price snapshot unreadable, starting empty")
	}
	return snap
}

type window struct {
	start   time.Time
	symbols []string
}

// plan groups the symbols that need fetching by window start. New symbols get
// the full lookback; cached symbols resume the day after their last bar.
func (c *Cache) plan(snap *Snapshot, symbols []string, today time.Time) []window {
	groups := make(map[time.Time][]string)
	seen := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		last, ok := snap.LastDate(sym)
		if !ok {
			start := today.AddDate(0, 0, -c.lookbackDays)
			groups[start] = append(groups[start], sym)
			continue
		}
		if !last.Before(today) {
			continue
		}
		start := model.Day(last).AddDate(0, 0, 1)
		groups[start] = append(groups[start], sym)
	}

	out := make([]window, 0, len(groups))
	for start, syms := range groups {
		out = append(out, window{start: start, symbols: syms})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].start.Before(out[j].start) })
	return out
}

// Refresh brings every requested symbol up to today and persists the snapshot
// when anything changed. Per-symbol failures are reported and skipped; the
// returned error is only set when the snapshot could not be written.
func (c *Cache) Refresh(ctx context.Context, symbols []string) (*Snapshot, *model.BatchReport, error) {
	report := &model.BatchReport{}
	snap, err := c.load()
	if err != nil {
		c.log.Debug().Err(err).Msg("price snapshot unreadable, starting empty")
	}

	today := model.Day(c.Now())
	changed := false
	for _, w := range c.plan(snap, symbols, today) {
		if err := ctx.Err(); err != nil {
			return snap, report, err
		}
		c.log.Info().Time("start", w.start).Int("count", len(w.symbols)).Msg("fetching price window")
		fetched, errs := c.fetcher.FetchDailyBatch(ctx, w.symbols, w.start, today)

		for _, sym := range w.symbols {
			if ferr, ok := errs[sym]; ok {
				report.Add(model.Failure{Symbol: sym, Kind: model.SourceUnavailable, Err: ferr})
				continue
			}
			bars := fetched[sym]
			if len(bars) == 0 {
				if _, cached := snap.Series[sym]; !cached {
					report.Add(model.Failure{Symbol: sym, Kind: model.SourceUnavailable, Err: fmt.Errorf("%s: %w", sym, collector.ErrNoData)})
				}
				continue
			}
			snap.Series[sym] = Merge(snap.Series[sym], bars)
			changed = true
		}
	}

	if !changed {
		return snap, report, nil
	}
	snap.UpdatedAt = c.Now()
	if err := c.store.Save(SchemaVersion, snap); err != nil {
		return snap, report, fmt.Errorf("save price snapshot: %w", err)
	}
	c.log.Info().Int("symbols", len(snap.Series)).Msg("price snapshot saved")
	return snap, report, nil
}
