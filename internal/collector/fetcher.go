package collector

import (
	"context"
	"errors"
	"time"

	"RisingStock/internal/model"
)

// ErrNoData is returned when the provider answers but has no rows for a symbol.
var ErrNoData = errors.New("no data returned")

// HistoryFetcher defines the interface for fetching daily price history.
// start and end are inclusive calendar days.
type HistoryFetcher interface {
	FetchDaily(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error)
	// FetchDailyBatch fetches one window for many symbols. Symbols that fail are
	// reported in the error map and absent from the result.
	FetchDailyBatch(ctx context.Context, symbols []string, start, end time.Time) (map[string][]model.OHLCV, map[string]error)
	Name() string
}

// FundamentalsFetcher defines the interface for fetching one fundamentals record.
type FundamentalsFetcher interface {
	FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error)
}
