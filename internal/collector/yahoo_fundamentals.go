package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"RisingStock/internal/model"
)

// ErrCrumb is returned when no Yahoo session crumb could be obtained.
var ErrCrumb = errors.New("yahoo: crumb unavailable")

const quoteSummaryModules = "price,assetProfile,summaryDetail,defaultKeyStatistics,financialData,incomeStatementHistoryQuarterly"

type crumbCache struct {
	mu    sync.Mutex
	value string
}

// rawValue is the {"raw": n, "fmt": "..."} shape used by quoteSummary.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummary struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				ShortName string `json:"shortName"`
				LongName  string `json:"longName"`
			} `json:"price"`
			AssetProfile struct {
				Sector string `json:"sector"`
			} `json:"assetProfile"`
			SummaryDetail struct {
				TrailingPE    rawValue `json:"trailingPE"`
				PriceToSales  rawValue `json:"priceToSalesTrailing12Months"`
				DividendYield rawValue `json:"dividendYield"`
			} `json:"summaryDetail"`
			KeyStatistics struct {
				PriceToBook        rawValue `json:"priceToBook"`
				EnterpriseToEbitda rawValue `json:"enterpriseToEbitda"`
				HeldByInstitutions rawValue `json:"heldPercentInstitutions"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				RevenueGrowth      rawValue `json:"revenueGrowth"`
				EarningsGrowth     rawValue `json:"earningsGrowth"`
				RecommendationKey  string   `json:"recommendationKey"`
				RecommendationMean rawValue `json:"recommendationMean"`
			} `json:"financialData"`
			IncomeQuarterly struct {
				History []struct {
					EndDate   rawValue `json:"endDate"`
					NetIncome rawValue `json:"netIncome"`
				} `json:"incomeStatementHistory"`
			} `json:"incomeStatementHistoryQuarterly"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

type searchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

// sessionCrumb returns the cached crumb, establishing a cookie session first when needed.
func (f *YahooFetcher) sessionCrumb(ctx context.Context, refresh bool) (string, error) {
	f.crumb.mu.Lock()
	defer f.crumb.mu.Unlock()
	if f.crumb.value != "" && !refresh {
		return f.crumb.value, nil
	}

	if f.CookieURL != "" {
		// fc.yahoo.com answers 404 but sets the session cookie in the jar.
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.CookieURL, nil)
		if err == nil {
			req.Header.Set("User-Agent", "Mozilla/5.0")
			if resp, err := f.Client.Do(req); err == nil {
				resp.Body.Close()
			}
		}
	}

	body, _, err := f.get(ctx, f.BaseURL+"/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrumb, err)
	}
	crumb := strings.TrimSpace(string(body))
	if crumb == "" || strings.ContainsAny(crumb, "<{") {
		return "", ErrCrumb
	}
	f.crumb.value = crumb
	return crumb, nil
}

func (f *YahooFetcher) fetchSummary(ctx context.Context, symbol string) (*quoteSummary, error) {
	crumb, err := f.sessionCrumb(ctx, false)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < 2; attempt++ {
		q := url.Values{}
		q.Set("modules", quoteSummaryModules)
		q.Set("crumb", crumb)
		u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", f.BaseURL, url.PathEscape(symbol), q.Encode())

		body, status, err := f.get(ctx, u)
		if status == http.StatusUnauthorized && attempt == 0 {
			if crumb, err = f.sessionCrumb(ctx, true); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			if status == http.StatusNotFound {
				return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
			}
			return nil, err
		}

		var qs quoteSummary
		if err := json.Unmarshal(body, &qs); err != nil {
			return nil, fmt.Errorf("yahoo decode quoteSummary: %w", err)
		}
		if qs.QuoteSummary.Error != nil {
			return nil, fmt.Errorf("yahoo api error: %s: %w", qs.QuoteSummary.Error.Description, ErrNoData)
		}
		if len(qs.QuoteSummary.Result) == 0 {
			return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
		}
		return &qs, nil
	}
	return nil, ErrCrumb
}

// FetchNews returns the provider's recent headlines for symbol, unfiltered.
func (f *YahooFetcher) FetchNews(ctx context.Context, symbol string) ([]model.NewsItem, error) {
	q := url.Values{}
	q.Set("q", symbol)
	q.Set("quotesCount", "0")
	q.Set("newsCount", fmt.Sprint(f.NewsCount))
	body, _, err := f.get(ctx, f.BaseURL+"/v1/finance/search?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("yahoo decode search: %w", err)
	}
	items := make([]model.NewsItem, 0, len(sr.News))
	for _, n := range sr.News {
		item := model.NewsItem{Title: n.Title, Link: n.Link}
		if n.ProviderPublishTime > 0 {
			item.Published = time.Unix(n.ProviderPublishTime, 0).UTC()
		}
		items = append(items, item)
	}
	return items, nil
}

// FetchFundamentals assembles one fundamentals record from quoteSummary and search.
// A news failure is logged and leaves the record without headlines.
func (f *YahooFetcher) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	qs, err := f.fetchSummary(ctx, symbol)
	if err != nil {
		return nil, err
	}
	res := qs.QuoteSummary.Result[0]
	now := f.Now()

	rec := &model.Fundamentals{
		Symbol:      symbol,
		Name:        firstNonEmpty(res.Price.ShortName, res.Price.LongName, symbol),
		Sector:      firstNonEmpty(res.AssetProfile.Sector, "Unknown"),
		PER:         res.SummaryDetail.TrailingPE.Raw,
		PBR:         res.KeyStatistics.PriceToBook.Raw,
		PSR:         res.SummaryDetail.PriceToSales.Raw,
		EVEBITDA:    res.KeyStatistics.EnterpriseToEbitda.Raw,
		RevGrowth:   res.FinancialData.RevenueGrowth.Raw,
		EPSGrowth:   res.FinancialData.EarningsGrowth.Raw,
		DivYield:    res.SummaryDetail.DividendYield.Raw,
		RecKey:      res.FinancialData.RecommendationKey,
		RecMean:     res.FinancialData.RecommendationMean.Raw,
		LastUpdated: now,
	}
	if v := res.KeyStatistics.HeldByInstitutions.Raw; v != nil {
		rec.InstOwn = *v
	}

	type point struct {
		end float64
		ni  float64
	}
	var points []point
	for _, h := range res.IncomeQuarterly.History {
		if h.NetIncome.Raw == nil {
			continue
		}
		var end float64
		if h.EndDate.Raw != nil {
			end = *h.EndDate.Raw
		}
		points = append(points, point{end: end, ni: *h.NetIncome.Raw})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].end > points[j].end })
	netIncome := make([]float64, len(points))
	for i, p := range points {
		netIncome[i] = p.ni
	}
	rec.Turnaround = model.ClassifyTurnaround(netIncome)

	news, err := f.FetchNews(ctx, symbol)
	if err != nil {
		f.Log.Warn().Str("ticker", symbol).Err(err).Msg("news fetch failed")
	}
	rec.News, rec.GoodNews = SelectNews(news, now)
	return rec, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
