package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"RisingStock/internal/model"
)

const defaultYahooBase = "https://query1.finance.yahoo.com"

// YahooFetcher implements HistoryFetcher and FundamentalsFetcher using Yahoo Finance public APIs.
type YahooFetcher struct {
	Client    *http.Client
	BaseURL   string
	CookieURL string
	Limiter   *rate.Limiter
	NewsCount int
	Now       func() time.Time
	Log       zerolog.Logger

	crumb crumbCache
}

// YahooOptions configures NewYahooFetcher.
type YahooOptions struct {
	Proxy             string
	RequestsPerSecond float64
	Burst             int
	NewsCount         int
}

// NewYahooFetcher creates a new Yahoo Finance fetcher with optional proxy support.
func NewYahooFetcher(opts YahooOptions, log zerolog.Logger) *YahooFetcher {
	transport := &http.Transport{}
	if opts.Proxy != "" {
		if u, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	jar, _ := cookiejar.New(nil)
	rps, burst := opts.RequestsPerSecond, opts.Burst
	if rps <= 0 {
		rps = 4
	}
	if burst <= 0 {
		burst = 1
	}
	newsCount := opts.NewsCount
	if newsCount <= 0 {
		newsCount = 10
	}
	return &YahooFetcher{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
			Jar:       jar,
		},
		BaseURL:   defaultYahooBase,
		CookieURL: "https://fc.yahoo.com",
		Limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		NewsCount: newsCount,
		Now:       time.Now,
		Log:       log.With().Str("component", "yahoo").Logger(),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				ShortName string `json:"shortName"`
				LongName  string `json:"longName"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

func at(vals []interface{}, i int) interface{} {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}

// get performs a rate-limited GET and returns the body of a 200 response.
func (f *YahooFetcher) get(ctx context.Context, u string) ([]byte, int, error) {
	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return body, resp.StatusCode, fmt.Errorf("yahoo: status %d", resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	start, end = model.Day(start), model.Day(end)
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", fmt.Sprint(start.Add(-24*time.Hour).Unix()))
	q.Set("period2", fmt.Sprint(end.Add(48*time.Hour).Unix()))
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(symbol), q.Encode())

	body, status, err := f.get(ctx, u)
	if err != nil {
		if status == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
		}
		return nil, err
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s: %w", chart.Chart.Error.Description, ErrNoData)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	byDay := make(map[time.Time]model.OHLCV, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if at(quote.Close, i) == nil {
			continue // null bars (holidays, halted sessions)
		}
		day := model.Day(time.Unix(ts+result.Meta.GMTOffset, 0))
		if day.Before(start) || day.After(end) {
			continue
		}
		byDay[day] = model.OHLCV{
			Time:   day,
			Open:   toFloat(at(quote.Open, i)),
			High:   toFloat(at(quote.High, i)),
			Low:    toFloat(at(quote.Low, i)),
			Close:  toFloat(at(quote.Close, i)),
			Volume: toFloat(at(quote.Volume, i)),
		}
	}

	bars := make([]model.OHLCV, 0, len(byDay))
	for _, b := range byDay {
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	name := result.Meta.ShortName
	if name == "" {
		name = result.Meta.LongName
	}
	return &model.PriceSeries{Symbol: symbol, Name: name, Bars: bars, FetchedAt: f.Now()}, nil
}

// FetchDaily returns the daily bars of symbol between start and end inclusive.
func (f *YahooFetcher) FetchDaily(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	return f.fetchChart(ctx, symbol, start, end)
}

// FetchDailyBatch fetches the same window for every symbol, one chart call per
// symbol under the shared rate limiter.
func (f *YahooFetcher) FetchDailyBatch(ctx context.Context, symbols []string, start, end time.Time) (map[string][]model.OHLCV, map[string]error) {
	out := make(map[string][]model.OHLCV, len(symbols))
	errs := make(map[string]error)
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			errs[sym] = err
			continue
		}
		series, err := f.fetchChart(ctx, sym, start, end)
		if err != nil {
			f.Log.Warn().Str("ticker", sym).Err(err).Msg("chart fetch failed")
			errs[sym] = err
			continue
		}
		out[sym] = series.Bars
	}
	return out, errs
}
