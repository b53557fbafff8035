package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RisingStock/internal/model"
)

// HistoryCall records one history request made to a MockFetcher.
type HistoryCall struct {
	Symbols    []string
	Start, End time.Time
}

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without explicit data get generated bars around Price when Price is set.
type MockFetcher struct {
	Price        float64
	Daily        map[string][]model.OHLCV
	Names        map[string]string
	Fundamentals map[string]*model.Fundamentals
	Errors       map[string]error

	mu           sync.Mutex
	HistoryCalls []HistoryCall
	FundCalls    []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) bars(symbol string, start, end time.Time) ([]model.OHLCV, error) {
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	src, ok := m.Daily[symbol]
	if !ok {
		if m.Price == 0 {
			return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
		}
		src = generateMockBars(m.Price, start, end)
	}
	start, end = model.Day(start), model.Day(end)
	out := make([]model.OHLCV, 0, len(src))
	for _, b := range src {
		if b.Time.Before(start) || b.Time.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *MockFetcher) FetchDaily(_ context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	m.mu.Lock()
	m.HistoryCalls = append(m.HistoryCalls, HistoryCall{Symbols: []string{symbol}, Start: start, End: end})
	m.mu.Unlock()

	bars, err := m.bars(symbol, start, end)
	if err != nil {
		return nil, err
	}
	return &model.PriceSeries{Symbol: symbol, Name: m.Names[symbol], Bars: bars}, nil
}

func (m *MockFetcher) FetchDailyBatch(_ context.Context, symbols []string, start, end time.Time) (map[string][]model.OHLCV, map[string]error) {
	m.mu.Lock()
	m.HistoryCalls = append(m.HistoryCalls, HistoryCall{Symbols: append([]string(nil), symbols...), Start: start, End: end})
	m.mu.Unlock()

	out := make(map[string][]model.OHLCV, len(symbols))
	errs := make(map[string]error)
	for _, s := range symbols {
		bars, err := m.bars(s, start, end)
		if err != nil {
			errs[s] = err
			continue
		}
		out[s] = bars
	}
	return out, errs
}

func (m *MockFetcher) FetchFundamentals(ctx context.Context, symbol string) (*model.Fundamentals, error) {
	m.mu.Lock()
	m.FundCalls = append(m.FundCalls, symbol)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	f, ok := m.Fundamentals[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	cp := *f
	return &cp, nil
}

// Calls returns a copy of the recorded fundamentals requests.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.FundCalls...)
}

// generateMockBars creates one bar per weekday between start and end.
func generateMockBars(basePrice float64, start, end time.Time) []model.OHLCV {
	var bars []model.OHLCV
	i := 0
	for d := model.Day(start); !d.After(model.Day(end)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i%10)*0.001)
		bars = append(bars, model.OHLCV{
			Time:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return bars
}
