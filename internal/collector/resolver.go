package collector

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"RisingStock/internal/model"
	"RisingStock/internal/symbol"
)

// Resolver maps user codes to the first provider symbol with enough history.
type Resolver struct {
	Fetcher HistoryFetcher
	Now     func() time.Time
	Log     zerolog.Logger
}

// NewResolver creates a resolver over fetcher.
func NewResolver(fetcher HistoryFetcher, log zerolog.Logger) *Resolver {
	return &Resolver{Fetcher: fetcher, Now: time.Now, Log: log.With().Str("component", "resolver").Logger()}
}

// Resolve tries each candidate symbol for code in order and returns the first
// series with at least the minimum rows for the mode. Later candidates are not
// tried once one succeeds. The error is always a model.Failure.
func (r *Resolver) Resolve(ctx context.Context, code string, lagged bool) (*model.PriceSeries, error) {
	end := model.Day(r.Now())
	start := end.AddDate(0, 0, -symbol.HistoryDays)
	required := symbol.MinRows(lagged)

	observed := -1
	var lastErr error
	for _, cand := range symbol.Candidates(code) {
		series, err := r.Fetcher.FetchDaily(ctx, cand, start, end)
		if err != nil {
			r.Log.Debug().Str("code", code).Str("candidate", cand).Err(err).Msg("candidate failed")
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if len(series.Bars) >= required {
			return series, nil
		}
		if len(series.Bars) > observed {
			observed = len(series.Bars)
		}
	}

	if observed >= 0 || errors.Is(lastErr, ErrNoData) {
		if observed < 0 {
			observed = 0
		}
		return nil, model.Failure{Symbol: code, Kind: model.InsufficientHistory, Observed: observed, Required: required, Err: lastErr}
	}
	if lastErr == nil {
		lastErr = errors.New("no candidate symbols")
	}
	return nil, model.Failure{Symbol: code, Kind: model.SourceUnavailable, Err: lastErr}
}
