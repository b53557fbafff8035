// Package pipeline owns the application state and runs the refresh, screen and
// watchlist operations end to end.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"RisingStock/internal/collector"
	"RisingStock/internal/config"
	"RisingStock/internal/detail"
	"RisingStock/internal/filter"
	"RisingStock/internal/fundcache"
	"RisingStock/internal/metrics"
	"RisingStock/internal/model"
	"RisingStock/internal/pricecache"
	"RisingStock/internal/recorder"
	"RisingStock/internal/screener"
	"RisingStock/internal/symbol"
	"RisingStock/internal/tickersource"
)

// ErrNoData is returned when no usable price data exists at all.
var ErrNoData = errors.New("no market data loaded")

// Deps are the external collaborators of an App.
type Deps struct {
	Source       tickersource.Source
	History      collector.HistoryFetcher
	Fundamentals collector.FundamentalsFetcher
	Recorder     recorder.Recorder
	Metrics      *metrics.Recorder
}

// State is the result of the latest cycle.
type State struct {
	Tickers   []string
	Snapshot  *pricecache.Snapshot
	Rows      []model.ViewRow
	Report    *model.BatchReport
	UpdatedAt time.Time
}

// App wires caches, fetchers and the screening engine around one State.
type App struct {
	SourceName       string
	Prices           *pricecache.Cache
	Funds            *fundcache.Cache
	Screener         *screener.Screener
	Resolver         *collector.Resolver
	InstOwnThreshold float64

	source   tickersource.Source
	recorder recorder.Recorder
	metrics  *metrics.Recorder
	log      zerolog.Logger

	runMu   sync.Mutex
	stateMu sync.RWMutex
	state   State
}

// New builds an App from configuration and dependencies.
func New(cfg *config.Config, deps Deps, log zerolog.Logger) *App {
	rec := deps.Recorder
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	sc := cfg.Screener
	return &App{
		SourceName: cfg.Tickers.SpreadsheetName,
		Prices:     pricecache.New(cfg.Cache.PriceFile, deps.History, cfg.Cache.LookbackDays, log),
		Funds: fundcache.New(cfg.Cache.FundamentalsFile, deps.Fundamentals, fundcache.Options{
			TTL:          cfg.Cache.FundamentalsTTL,
			Workers:      cfg.Cache.Workers,
			FetchTimeout: cfg.Cache.FetchTimeout,
		}, log),
		Screener: screener.New(screener.Params{
			Window:            sc.Window,
			MaxVolatility:     sc.MaxVolatility,
			NearHighRatio:     sc.NearHighRatio,
			VolumeWindow:      sc.VolumeWindow,
			VolumeSpikeFactor: sc.VolumeSpikeFactor,
		}, log),
		Resolver:         collector.NewResolver(deps.History, log),
		InstOwnThreshold: sc.InstOwnThreshold,
		source:           deps.Source,
		recorder:         rec,
		metrics:          deps.Metrics,
		log:              log.With().Str("component", "pipeline").Logger(),
		state:            State{Report: &model.BatchReport{}},
	}
}

// SetClock overrides the time source of both caches and the resolver.
func (a *App) SetClock(now func() time.Time) {
	a.Prices.Now = now
	a.Funds.Now = now
	a.Resolver.Now = now
}

// Start restores the persisted price snapshot; the ticker universe defaults to
// the symbols already cached.
func (a *App) Start() {
	snap := a.Prices.Load()
	a.stateMu.Lock()
	a.state.Snapshot = snap
	a.state.Tickers = snap.Symbols()
	a.state.UpdatedAt = snap.UpdatedAt
	a.stateMu.Unlock()
	a.metrics.SetCachedSymbols(len(snap.Series))
	a.log.Info().Int("symbols", len(snap.Series)).Msg("price snapshot restored")
}

// State returns a copy of the current state.
func (a *App) State() State {
	a.stateMu.RLock()
	defer a.stateMu.RUnlock()
	s := a.state
	s.Tickers = append([]string(nil), a.state.Tickers...)
	s.Rows = append([]model.ViewRow(nil), a.state.Rows...)
	return s
}

// LoadTickers reads the universe from the ticker source. On failure the
// previous universe is kept and the failure is added to report.
func (a *App) LoadTickers(ctx context.Context, name string, report *model.BatchReport) []string {
	if name == "" {
		name = a.SourceName
	}
	prev := a.State().Tickers
	if a.source == nil {
		return prev
	}
	tickers, err := a.source.Tickers(ctx, name)
	if err != nil {
		kind := model.SourceUnavailable
		if errors.Is(err, tickersource.ErrUnauthorized) {
			kind = model.Unauthorized
		}
		a.log.Error().Err(err).Str("sheet", name).Int("cached", len(prev)).Msg("ticker source failed, using cached universe")
		report.Add(model.Failure{Kind: kind, Err: err})
		return prev
	}
	if len(tickers) == 0 {
		a.log.Warn().Str("sheet", name).Msg("ticker source returned no symbols, using cached universe")
		return prev
	}
	return tickers
}

// Update reloads the universe and refreshes the price cache.
func (a *App) Update(ctx context.Context, sheet string) (*model.BatchReport, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.update(ctx, sheet)
}

func (a *App) update(ctx context.Context, sheet string) (report *model.BatchReport, err error) {
	started := time.Now()
	if sheet == "" {
		sheet = a.SourceName
	}
	run := recorder.NewRun(recorder.KindRefresh, sheet)
	report = &model.BatchReport{}
	defer func() {
		a.finish(run, report, started, err)
	}()

	tickers := a.resolveUniverse(ctx, a.LoadTickers(ctx, sheet, report), report)
	run.Universe = len(tickers)
	snap, refreshReport, err := a.Prices.Refresh(ctx, tickers)
	report.Merge(refreshReport)

	a.stateMu.Lock()
	a.state.Tickers = tickers
	if snap != nil {
		a.state.Snapshot = snap
		a.state.UpdatedAt = time.Now()
	}
	a.stateMu.Unlock()
	if snap != nil {
		a.metrics.SetCachedSymbols(len(snap.Series))
	}
	if err != nil {
		return report, fmt.Errorf("refresh prices: %w", err)
	}
	a.log.Info().Int("tickers", len(tickers)).Int("failures", report.Len()).Msg("prices updated")
	return report, nil
}

// resolveUniverse maps universe entries to the provider symbols that get
// cached. Six-digit exchange codes reuse the suffix already cached for them and
// are otherwise resolved once (.KS then .KQ); codes that resolve to nothing are
// reported and left out.
func (a *App) resolveUniverse(ctx context.Context, tickers []string, report *model.BatchReport) []string {
	snap := a.State().Snapshot
	if snap == nil {
		snap = a.Prices.Load()
	}
	out := make([]string, 0, len(tickers))
	seen := make(map[string]bool, len(tickers))
	resolved := make(map[string]string, len(tickers))
	for _, t := range tickers {
		code := symbol.Normalize(t)
		sym, done := resolved[code]
		if !done {
			sym = a.canonical(ctx, snap, code, report)
			resolved[code] = sym
		}
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

func (a *App) canonical(ctx context.Context, snap *pricecache.Snapshot, code string, report *model.BatchReport) string {
	if !symbol.IsDomestic(code) {
		return code
	}
	for _, cand := range symbol.Candidates(code) {
		if _, ok := snap.Series[cand]; ok {
			return cand
		}
	}
	series, err := a.Resolver.Resolve(ctx, code, false)
	if err != nil {
		var f model.Failure
		if errors.As(err, &f) {
			report.Add(f)
		} else {
			report.Add(model.Failure{Symbol: code, Kind: model.SourceUnavailable, Err: err})
		}
		return ""
	}
	a.log.Debug().Str("code", code).Str("symbol", series.Symbol).Msg("code resolved")
	return series.Symbol
}

// Screen evaluates the current universe, fetches fundamentals for the
// candidates and stores the joined rows.
func (a *App) Screen(ctx context.Context) ([]model.ViewRow, *model.BatchReport, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.screen(ctx, nil)
}

func (a *App) screen(ctx context.Context, carry *model.BatchReport) ([]model.ViewRow, *model.BatchReport, error) {
	started := time.Now()
	st := a.State()
	run := recorder.NewRun(recorder.KindScreen, a.SourceName)
	run.Universe = len(st.Tickers)

	if st.Snapshot == nil || len(st.Snapshot.Series) == 0 {
		report := &model.BatchReport{}
		report.Merge(carry)
		a.finish(run, nil, started, ErrNoData)
		return nil, report, ErrNoData
	}

	cands, report := a.Screener.Screen(st.Snapshot.Series, st.Tickers)

	symbols := make([]string, len(cands))
	for i, c := range cands {
		symbols[i] = c.Symbol
	}
	funds := map[string]*model.Fundamentals{}
	if len(symbols) > 0 {
		var (
			fundReport *model.BatchReport
			err        error
		)
		funds, fundReport, err = a.Funds.Get(ctx, symbols)
		report.Merge(fundReport)
		if err != nil {
			a.log.Error().Err(err).Msg("fundamentals snapshot not saved")
		}
	}
	rows := filter.Join(cands, funds, a.InstOwnThreshold)
	run.Candidates = rows
	a.finish(run, report, started, nil)

	combined := &model.BatchReport{}
	combined.Merge(carry)
	combined.Merge(report)

	a.stateMu.Lock()
	a.state.Rows = rows
	a.state.Report = combined
	a.stateMu.Unlock()
	a.metrics.SetCandidates(len(rows))
	a.log.Info().Int("candidates", len(rows)).Int("failures", combined.Len()).Msg("screening complete")
	return rows, combined, nil
}

// Run performs a full cycle: universe reload, price refresh, screening.
func (a *App) Run(ctx context.Context, sheet string) ([]model.ViewRow, *model.BatchReport, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	updateReport, err := a.update(ctx, sheet)
	if err != nil {
		a.log.Error().Err(err).Msg("price refresh failed, screening cached data")
	}
	return a.screen(ctx, updateReport)
}

// Watchlist analyzes the volume of the given codes.
func (a *App) Watchlist(ctx context.Context, codes []string, opts collector.WatchlistOptions) ([]model.WatchlistRow, *model.BatchReport) {
	started := time.Now()
	run := recorder.NewRun(recorder.KindWatchlist, "watchlist")
	run.Universe = len(codes)
	rows, report := a.Resolver.Watchlist(ctx, codes, opts)
	run.Watchlist = rows
	a.finish(run, report, started, nil)
	return rows, report
}

// RecentRuns returns the latest recorded runs, newest first.
func (a *App) RecentRuns(limit int) ([]recorder.RunSummary, error) {
	return a.recorder.RecentRuns(limit)
}

// Detail builds the drill-down view for tickers from the current state.
func (a *App) Detail(tickers []string, period string) (*detail.View, error) {
	st := a.State()
	if st.Snapshot == nil {
		return nil, ErrNoData
	}
	return detail.Build(st.Snapshot.Series, st.Rows, tickers, period)
}

func (a *App) finish(run *recorder.Run, report *model.BatchReport, started time.Time, err error) {
	run.FinishedAt = time.Now()
	if report != nil {
		run.Failures = append(run.Failures, report.Failures...)
		for _, msg := range report.Messages() {
			a.log.Warn().Str("run", run.ID.String()).Msg(msg)
		}
	}
	a.metrics.ObserveRun(run.Kind, started, err)
	a.metrics.ObserveReport(report)
	if rerr := a.recorder.RecordRun(run); rerr != nil {
		a.log.Error().Err(rerr).Str("run", run.ID.String()).Msg("record run failed")
	}
}
