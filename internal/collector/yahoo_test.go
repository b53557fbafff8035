package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestYahoo(t *testing.T, h http.Handler) *YahooFetcher {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	f := NewYahooFetcher(YahooOptions{RequestsPerSecond: 1000, Burst: 10, NewsCount: 5}, zerolog.Nop())
	f.BaseURL = srv.URL
	f.CookieURL = ""
	f.Now = func() time.Time { return time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC) }
	return f
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// 2026-03-02..04 14:30 UTC are 09:30 New York; the third session has a null close.
const chartBody = `{"chart":{"result":[{"meta":{"symbol":"AAPL","shortName":"Apple Inc.","gmtoffset":-18000},
"timestamp":[1772461800,1772548200,1772634600],
"indicators":{"quote":[{"open":[10,11,null],"high":[12,13,null],"low":[9,10,null],"close":[11,12,null],"volume":[1000,2000,null]}]}}],"error":null}}`

func TestFetchDailyParsesChart(t *testing.T) {
	var gotPath string
	f := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.URL.Query().Get("period1"))
		fmt.Fprint(w, chartBody)
	}))

	series, err := f.FetchDaily(context.Background(), "AAPL", day(2026, 3, 1), day(2026, 3, 5))
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "Apple Inc.", series.Name)
	require.Len(t, series.Bars, 2, "null bar skipped")
	assert.Equal(t, day(2026, 3, 2), series.Bars[0].Time)
	assert.Equal(t, day(2026, 3, 3), series.Bars[1].Time)
	assert.Equal(t, 12.0, series.Bars[1].Close)
	assert.Equal(t, 2000.0, series.Bars[1].Volume)
}

func TestFetchDailyTrimsToWindow(t *testing.T) {
	f := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartBody)
	}))
	series, err := f.FetchDaily(context.Background(), "AAPL", day(2026, 3, 3), day(2026, 3, 3))
	require.NoError(t, err)
	require.Len(t, series.Bars, 1)
	assert.Equal(t, day(2026, 3, 3), series.Bars[0].Time)
}

func TestFetchDailyErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		noData bool
	}{
		{"not found", http.StatusNotFound, `{}`, true},
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`, true},
		{"server error", http.StatusInternalServerError, `oops`, false},
		{"bad json", http.StatusOK, `{`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			_, err := f.FetchDaily(context.Background(), "ZZZ", day(2026, 3, 1), day(2026, 3, 5))
			require.Error(t, err)
			assert.Equal(t, tt.noData, strings.Contains(err.Error(), ErrNoData.Error()))
		})
	}
}

func TestFetchDailyBatchReportsPerSymbol(t *testing.T) {
	f := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/BAD") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, chartBody)
	}))
	out, errs := f.FetchDailyBatch(context.Background(), []string{"AAPL", "BAD", "MSFT"}, day(2026, 3, 1), day(2026, 3, 5))
	assert.Len(t, out, 2)
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "MSFT")
	require.Contains(t, errs, "BAD")
	assert.ErrorIs(t, errs["BAD"], ErrNoData)
}

func summaryHandler(t *testing.T, crumbHits *int32) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/test/getcrumb", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(crumbHits, 1)
		fmt.Fprint(w, "abc123")
	})
	mux.HandleFunc("/v10/finance/quoteSummary/NVDA", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc123", r.URL.Query().Get("crumb"))
		assert.Contains(t, r.URL.Query().Get("modules"), "incomeStatementHistoryQuarterly")
		fmt.Fprint(w, `{"quoteSummary":{"result":[{
"price":{"shortName":"NVIDIA"},
"assetProfile":{"sector":"Technology"},
"summaryDetail":{"trailingPE":{"raw":55.2},"dividendYield":{"raw":0.0003},"priceToSalesTrailing12Months":{"raw":30.1}},
"defaultKeyStatistics":{"priceToBook":{"raw":45.5},"heldPercentInstitutions":{"raw":0.67},"enterpriseToEbitda":{}},
"financialData":{"revenueGrowth":{"raw":1.22},"earningsGrowth":{"raw":1.68},"recommendationKey":"buy","recommendationMean":{"raw":1.4}},
"incomeStatementHistoryQuarterly":{"incomeStatementHistory":[
  {"endDate":{"raw":1700000000},"netIncome":{"raw":50}},
  {"endDate":{"raw":1710000000},"netIncome":{"raw":80}}]}}],"error":null}}`)
	})
	mux.HandleFunc("/v1/finance/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NVDA", r.URL.Query().Get("q"))
		fresh := time.Date(2026, 3, 5, 6, 0, 0, 0, time.UTC).Unix()
		stale := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC).Unix()
		fmt.Fprintf(w, `{"news":[
{"title":"Old record quarter","link":"https://x/old","providerPublishTime":%d},
{"title":"NVIDIA wins contract","link":"https://x/new","providerPublishTime":%d}]}`, stale, fresh)
	})
	return mux
}

func TestFetchFundamentals(t *testing.T) {
	var crumbHits int32
	f := newTestYahoo(t, summaryHandler(t, &crumbHits))

	rec, err := f.FetchFundamentals(context.Background(), "NVDA")
	require.NoError(t, err)

	assert.Equal(t, "NVIDIA", rec.Name)
	assert.Equal(t, "Technology", rec.Sector)
	assert.InDelta(t, 0.67, rec.InstOwn, 1e-9)
	require.NotNil(t, rec.PER)
	assert.InDelta(t, 55.2, *rec.PER, 1e-9)
	assert.Nil(t, rec.EVEBITDA, "empty raw object maps to missing")
	assert.Equal(t, "buy", rec.RecKey)
	assert.Equal(t, "Profit Growth", string(rec.Turnaround), "quarters ordered newest first by end date")
	require.Len(t, rec.News, 1, "stale headline dropped")
	assert.True(t, rec.GoodNews)
	assert.Equal(t, "https://x/new", rec.News[0].Link)

	_, err = f.FetchFundamentals(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&crumbHits), "crumb reused across calls")
}

func TestFetchFundamentalsCrumbUnavailable(t *testing.T) {
	f := newTestYahoo(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	_, err := f.FetchFundamentals(context.Background(), "NVDA")
	assert.ErrorIs(t, err, ErrCrumb)
}
