// Package screener flags volatility-contraction setups near their recent high.
package screener

import (
	"github.com/rs/zerolog"

	"RisingStock/internal/calculator"
	"RisingStock/internal/model"
)

// Params holds the screening thresholds.
type Params struct {
	Window            int
	MaxVolatility     float64
	NearHighRatio     float64
	VolumeWindow      int
	VolumeSpikeFactor float64
}

// DefaultParams returns the standard 60-day contraction thresholds.
func DefaultParams() Params {
	return Params{
		Window:            60,
		MaxVolatility:     0.20,
		NearHighRatio:     0.85,
		VolumeWindow:      20,
		VolumeSpikeFactor: 1.03,
	}
}

// Screener evaluates cached price history against Params.
type Screener struct {
	Params Params
	log    zerolog.Logger
}

// New creates a screener. Zero-valued params fall back to the defaults.
func New(p Params, log zerolog.Logger) *Screener {
	d := DefaultParams()
	if p.Window <= 0 {
		p.Window = d.Window
	}
	if p.MaxVolatility <= 0 {
		p.MaxVolatility = d.MaxVolatility
	}
	if p.NearHighRatio <= 0 {
		p.NearHighRatio = d.NearHighRatio
	}
	if p.VolumeWindow <= 0 {
		p.VolumeWindow = d.VolumeWindow
	}
	if p.VolumeSpikeFactor <= 0 {
		p.VolumeSpikeFactor = d.VolumeSpikeFactor
	}
	return &Screener{Params: p, log: log.With().Str("component", "screener").Logger()}
}

// Evaluate computes the candidate diagnostics for one symbol. ok reports
// whether the bars had enough history to evaluate.
func (s *Screener) Evaluate(symbol string, bars []model.OHLCV) (c model.Candidate, ok bool) {
	p := s.Params
	if len(bars) < p.Window {
		return model.Candidate{Symbol: symbol}, false
	}
	high, low, err := calculator.WindowRange(bars, p.Window)
	if err != nil {
		return model.Candidate{Symbol: symbol}, false
	}
	last := bars[len(bars)-1]
	c = model.Candidate{Symbol: symbol, Price: last.Close, High60: high}

	vol, err := calculator.Volatility(high, low)
	if err != nil {
		return c, true
	}
	c.Volatility = vol
	c.VCP = vol < p.MaxVolatility && last.Close > p.NearHighRatio*high

	if avg, err := calculator.TrailingMean(model.Volumes(bars), p.VolumeWindow); err == nil && avg > 0 {
		c.VolumeRatio = last.Volume / avg
		c.VolSpike = last.Volume > p.VolumeSpikeFactor*avg
	}
	return c, true
}

// Screen evaluates the requested symbols in order and returns the VCP
// candidates. Symbols absent from series are skipped; symbols with too little
// history are reported.
func (s *Screener) Screen(series map[string][]model.OHLCV, symbols []string) ([]model.Candidate, *model.BatchReport) {
	report := &model.BatchReport{}
	var out []model.Candidate
	for _, sym := range symbols {
		bars, present := series[sym]
		if !present {
			s.log.Debug().Str("ticker", sym).Msg("not in price snapshot")
			continue
		}
		c, ok := s.Evaluate(sym, bars)
		if !ok {
			report.Add(model.Failure{Symbol: sym, Kind: model.InsufficientHistory, Observed: len(bars), Required: s.Params.Window})
			continue
		}
		if c.VCP {
			out = append(out, c)
		}
	}
	s.log.Info().Int("screened", len(symbols)).Int("candidates", len(out)).Msg("screening done")
	return out, report
}
