// Package fundcache caches per-symbol fundamentals with a TTL and an explicit schema version.
package fundcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"RisingStock/internal/collector"
	"RisingStock/internal/model"
	"RisingStock/internal/snapshot"
)

// CurrentSchemaVersion is bumped whenever model.Fundamentals gains fields that
// older records cannot provide.
const CurrentSchemaVersion = 2

const snapshotKind = "fundamentals"

// Options tunes refresh behaviour.
type Options struct {
	TTL          time.Duration
	Workers      int
	FetchTimeout time.Duration
}

type payload struct {
	Records map[string]model.Fundamentals `json:"records"`
}

// Cache owns the persisted fundamentals snapshot.
type Cache struct {
	store   *snapshot.Store
	fetcher collector.FundamentalsFetcher
	opts    Options
	Now     func() time.Time
	log     zerolog.Logger
}

// New creates a fundamentals cache persisted at path.
func New(path string, fetcher collector.FundamentalsFetcher, opts Options, log zerolog.Logger) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 20 * time.Second
	}
	return &Cache{
		store:   snapshot.NewStore(path, snapshotKind),
		fetcher: fetcher,
		opts:    opts,
		Now:     time.Now,
		log:     log.With().Str("component", "fundcache").Logger(),
	}
}

// Load returns the cached records. A missing or unreadable snapshot yields an
// empty map; err carries the reason for an unreadable one.
func (c *Cache) Load() (map[string]model.Fundamentals, error) {
	var p payload
	meta, err := c.store.Load(&p)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return map[string]model.Fundamentals{}, nil
		}
		c.log.Debug().Err(err).Msg("fundamentals snapshot unreadable, starting empty")
		return map[string]model.Fundamentals{}, err
	}
	if p.Records == nil {
		p.Records = map[string]model.Fundamentals{}
	}
	if meta.Schema < CurrentSchemaVersion {
		c.log.Info().Int("from", meta.Schema).Int("to", CurrentSchemaVersion).Msg("fundamentals schema migration, outdated records will refresh")
	}
	return p.Records, nil
}

// Stale returns the requested symbols that are missing, expired or written
// under an older schema, in request order.
func (c *Cache) Stale(records map[string]model.Fundamentals, symbols []string) []string {
	now := c.Now()
	seen := make(map[string]bool, len(symbols))
	var out []string
	for _, sym := range symbols {
		if seen[sym] {
			continue
		}
		seen[sym] = true
		rec, ok := records[sym]
		if !ok || rec.SchemaVersion < CurrentSchemaVersion || rec.Expired(now, c.opts.TTL) {
			out = append(out, sym)
		}
	}
	return out
}

type result struct {
	symbol string
	rec    *model.Fundamentals
	err    error
}

// fetchAll runs the fetches on a bounded pool; each worker handles one symbol
// at a time and reports through the results channel.
func (c *Cache) fetchAll(ctx context.Context, symbols []string) <-chan result {
	results := make(chan result, len(symbols))
	sem := make(chan struct{}, c.opts.Workers)
	var wg sync.WaitGroup

	for _, sym := range symbols {
		sym := sym
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			fctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
			defer cancel()
			rec, err := c.fetcher.FetchFundamentals(fctx, sym)
			results <- result{symbol: sym, rec: rec, err: err}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// Get returns fundamentals for the requested symbols, refreshing stale ones
// first. Symbols whose refresh failed keep their previous record if any, or are
// absent. The error is only set when the snapshot could not be written.
func (c *Cache) Get(ctx context.Context, symbols []string) (map[string]*model.Fundamentals, *model.BatchReport, error) {
	report := &model.BatchReport{}
	records, _ := c.Load()

	stale := c.Stale(records, symbols)
	if len(stale) > 0 {
		c.log.Info().Int("count", len(stale)).Msg("refreshing fundamentals")
		refreshed := 0
		for r := range c.fetchAll(ctx, stale) {
			if r.err != nil || r.rec == nil {
				if r.err == nil {
					r.err = fmt.Errorf("%s: %w", r.symbol, collector.ErrNoData)
				}
				c.log.Warn().Str("ticker", r.symbol).Err(r.err).Msg("fundamentals fetch failed")
				report.Add(model.Failure{Symbol: r.symbol, Kind: model.SourceUnavailable, Err: r.err})
				continue
			}
			rec := *r.rec
			rec.Symbol = r.symbol
			rec.SchemaVersion = CurrentSchemaVersion
			if rec.LastUpdated.IsZero() {
				rec.LastUpdated = c.Now()
			}
			records[r.symbol] = rec
			refreshed++
		}
		if refreshed > 0 {
			if err := c.store.Save(CurrentSchemaVersion, payload{Records: records}); err != nil {
				return subset(records, symbols), report, fmt.Errorf("save fundamentals snapshot: %w", err)
			}
		}
		sort.Slice(report.Failures, func(i, j int) bool { return report.Failures[i].Symbol < report.Failures[j].Symbol })
	}
	return subset(records, symbols), report, nil
}

func subset(records map[string]model.Fundamentals, symbols []string) map[string]*model.Fundamentals {
	out := make(map[string]*model.Fundamentals, len(symbols))
	for _, sym := range symbols {
		if rec, ok := records[sym]; ok {
			rec := rec
			out[sym] = &rec
		}
	}
	return out
}
