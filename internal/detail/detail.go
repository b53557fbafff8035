// Package detail builds the drill-down views for selected candidates.
package detail

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"RisingStock/internal/model"
)

// DefaultPeriod is used when no period is requested.
const DefaultPeriod = "3M"

// Periods maps period labels to trading-row counts.
var Periods = map[string]int{
	"1M": 20,
	"3M": 60,
	"6M": 120,
	"1Y": 252,
}

// PeriodRows resolves a period label to its row count.
func PeriodRows(label string) (int, error) {
	if label == "" {
		label = DefaultPeriod
	}
	n, ok := Periods[strings.ToUpper(label)]
	if !ok {
		return 0, fmt.Errorf("unknown period %q (want 1M, 3M, 6M or 1Y)", label)
	}
	return n, nil
}

// Point is one normalized return observation.
type Point struct {
	Date time.Time `json:"date"`
	Pct  float64   `json:"pct"`
}

// ReturnSeries is the cumulative return of one ticker over the window.
type ReturnSeries struct {
	Symbol string  `json:"ticker"`
	Points []Point `json:"points"`
}

// Returns normalizes each ticker's closes to percent change from its first
// close inside the window. The window is the last n dates of the union of the
// tickers' calendars; dates a ticker did not trade are omitted, not filled.
func Returns(series map[string][]model.OHLCV, tickers []string, period string) ([]ReturnSeries, error) {
	n, err := PeriodRows(period)
	if err != nil {
		return nil, err
	}

	dates := map[time.Time]bool{}
	for _, t := range tickers {
		for _, b := range series[t] {
			dates[model.Day(b.Time)] = true
		}
	}
	calendar := make([]time.Time, 0, len(dates))
	for d := range dates {
		calendar = append(calendar, d)
	}
	sort.Slice(calendar, func(i, j int) bool { return calendar[i].Before(calendar[j]) })
	if len(calendar) > n {
		calendar = calendar[len(calendar)-n:]
	}

	out := make([]ReturnSeries, 0, len(tickers))
	for _, t := range tickers {
		rs := ReturnSeries{Symbol: t, Points: []Point{}}
		if len(calendar) > 0 {
			from := calendar[0]
			base := 0.0
			for _, b := range series[t] {
				d := model.Day(b.Time)
				if d.Before(from) {
					continue
				}
				if base == 0 {
					if b.Close == 0 {
						continue
					}
					base = b.Close
				}
				rs.Points = append(rs.Points, Point{Date: d, Pct: (b.Close/base - 1) * 100})
			}
		}
		out = append(out, rs)
	}
	return out, nil
}

// MetricNames is the row order of the metrics table.
var MetricNames = []string{
	"Name", "Price", "Sector", "Inst_Own", "PER", "PBR", "PSR", "EV/EBITDA",
	"RevGrowth", "EPSGrowth", "DivYield", "RecKey", "RecMean", "Turnaround",
}

// MetricsTable is a metric × ticker grid of formatted values.
type MetricsTable struct {
	Tickers []string   `json:"tickers"`
	Metrics []string   `json:"metrics"`
	Values  [][]string `json:"values"`
}

const missing = "-"

func fmtOpt(p *float64, format string, scale float64) string {
	if p == nil {
		return missing
	}
	return fmt.Sprintf(format, *p*scale)
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}

func metricValues(r *model.ViewRow) []string {
	f := r.Fundamentals
	if f == nil {
		f = &model.Fundamentals{}
	}
	inst := missing
	if r.Fundamentals != nil {
		inst = fmt.Sprintf("%.1f%%", f.InstOwn*100)
	}
	return []string{
		r.Name,
		fmt.Sprintf("$%.2f", r.Price),
		orMissing(f.Sector),
		inst,
		fmtOpt(f.PER, "%.1f", 1),
		fmtOpt(f.PBR, "%.1f", 1),
		fmtOpt(f.PSR, "%.1f", 1),
		fmtOpt(f.EVEBITDA, "%.1f", 1),
		fmtOpt(f.RevGrowth, "%.1f%%", 100),
		fmtOpt(f.EPSGrowth, "%.1f%%", 100),
		fmtOpt(f.DivYield, "%.2f%%", 100),
		orMissing(f.RecKey),
		fmtOpt(f.RecMean, "%.2f", 1),
		orMissing(string(f.Turnaround)),
	}
}

func selectRows(rows []model.ViewRow, tickers []string) []*model.ViewRow {
	bySymbol := make(map[string]*model.ViewRow, len(rows))
	for i := range rows {
		bySymbol[rows[i].Symbol] = &rows[i]
	}
	out := make([]*model.ViewRow, 0, len(tickers))
	for _, t := range tickers {
		if r, ok := bySymbol[t]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Metrics builds the transposed metrics table for the selected tickers that
// are present in rows, in selection order.
func Metrics(rows []model.ViewRow, tickers []string) MetricsTable {
	selected := selectRows(rows, tickers)
	t := MetricsTable{Metrics: MetricNames, Tickers: make([]string, 0, len(selected))}
	cols := make([][]string, 0, len(selected))
	for _, r := range selected {
		t.Tickers = append(t.Tickers, r.Symbol)
		cols = append(cols, metricValues(r))
	}
	t.Values = make([][]string, len(MetricNames))
	for i := range MetricNames {
		t.Values[i] = make([]string, len(cols))
		for j := range cols {
			t.Values[i][j] = cols[j][i]
		}
	}
	return t
}

// NoNews is shown for a ticker without recent headlines.
const NoNews = "No recent news found."

// TickerNews is the headline list of one ticker.
type TickerNews struct {
	Symbol string           `json:"ticker"`
	Items  []model.NewsItem `json:"items"`
}

// News returns the cached headlines of the selected tickers.
func News(rows []model.ViewRow, tickers []string) []TickerNews {
	selected := selectRows(rows, tickers)
	out := make([]TickerNews, 0, len(selected))
	for _, r := range selected {
		tn := TickerNews{Symbol: r.Symbol, Items: []model.NewsItem{}}
		if r.Fundamentals != nil {
			tn.Items = append(tn.Items, r.Fundamentals.News...)
		}
		out = append(out, tn)
	}
	return out
}

// Lines renders the headline list as markdown bullets.
func (n TickerNews) Lines() []string {
	if len(n.Items) == 0 {
		return []string{NoNews}
	}
	out := make([]string, len(n.Items))
	for i, item := range n.Items {
		out[i] = fmt.Sprintf("- [%s](%s)", item.Title, item.Link)
	}
	return out
}

// View bundles everything shown for one selection.
type View struct {
	Period  string         `json:"period"`
	Returns []ReturnSeries `json:"returns"`
	Metrics MetricsTable   `json:"metrics"`
	News    []TickerNews   `json:"news"`
}

// Build assembles the full detail view.
func Build(series map[string][]model.OHLCV, rows []model.ViewRow, tickers []string, period string) (*View, error) {
	if period == "" {
		period = DefaultPeriod
	}
	ret, err := Returns(series, tickers, period)
	if err != nil {
		return nil, err
	}
	return &View{
		Period:  strings.ToUpper(period),
		Returns: ret,
		Metrics: Metrics(rows, tickers),
		News:    News(rows, tickers),
	}, nil
}
