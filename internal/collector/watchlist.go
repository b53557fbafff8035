package collector

import (
	"context"
	"errors"

	"RisingStock/internal/calculator"
	"RisingStock/internal/model"
	"RisingStock/internal/symbol"
)

const (
	longVolumeWindow  = 20
	shortVolumeWindow = 3
	// QualifyingRatio is the 20-day volume ratio (percent) a row must exceed.
	QualifyingRatio = 150.0
)

// WatchlistOptions controls a watchlist analysis batch.
type WatchlistOptions struct {
	// Lagged drops the latest (possibly incomplete) session before analysis.
	Lagged bool
	// OnlyQualifying hides rows whose 20-day ratio does not exceed the threshold.
	OnlyQualifying bool
}

// AnalyzeVolume computes the volume ratios of the latest session against the
// 20 and 3 sessions before it.
func AnalyzeVolume(code string, series *model.PriceSeries, lagged bool) (model.WatchlistRow, error) {
	bars := series.Bars
	if lagged && len(bars) > 0 {
		bars = bars[:len(bars)-1]
	}
	if len(bars) < longVolumeWindow+1 {
		return model.WatchlistRow{}, model.Failure{
			Symbol: code, Kind: model.InsufficientHistory,
			Observed: len(series.Bars), Required: symbol.MinRows(lagged),
		}
	}

	vols := model.Volumes(bars)
	curr := bars[len(bars)-1]
	prev := bars[len(bars)-2]
	avg20, err := calculator.TrailingMean(vols, longVolumeWindow)
	if err != nil {
		return model.WatchlistRow{}, err
	}
	avg3, err := calculator.TrailingMean(vols, shortVolumeWindow)
	if err != nil {
		return model.WatchlistRow{}, err
	}

	name := series.Name
	if name == "" {
		name = code
	}
	row := model.WatchlistRow{
		Code:        code,
		Symbol:      series.Symbol,
		Name:        name,
		Domestic:    symbol.IsDomestic(code),
		Price:       curr.Close,
		ChangePct:   calculator.ChangePct(curr.Close, prev.Close),
		Volume:      curr.Volume,
		AvgVolume3:  avg3,
		AvgVolume20: avg20,
		Ratio3:      calculator.Ratio(curr.Volume, avg3),
		Ratio20:     calculator.Ratio(curr.Volume, avg20),
	}
	row.Qualifies = row.Ratio20 > QualifyingRatio
	return row, nil
}

// Watchlist resolves and analyzes each code in input order. Per-code failures
// are collected in the report and the batch continues.
func (r *Resolver) Watchlist(ctx context.Context, codes []string, opts WatchlistOptions) ([]model.WatchlistRow, *model.BatchReport) {
	report := &model.BatchReport{}
	rows := make([]model.WatchlistRow, 0, len(codes))
	for _, raw := range codes {
		code := symbol.Normalize(raw)
		if code == "" {
			continue
		}
		series, err := r.Resolve(ctx, code, opts.Lagged)
		if err == nil {
			var row model.WatchlistRow
			row, err = AnalyzeVolume(code, series, opts.Lagged)
			if err == nil {
				if !opts.OnlyQualifying || row.Qualifies {
					rows = append(rows, row)
				}
				continue
			}
		}
		var f model.Failure
		if !errors.As(err, &f) {
			f = model.Failure{Symbol: code, Kind: model.SourceUnavailable, Err: err}
		}
		r.Log.Warn().Str("code", code).Err(f).Msg("watchlist entry skipped")
		report.Add(f)
	}
	return rows, report
}
