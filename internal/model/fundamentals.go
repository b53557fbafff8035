package model

import "time"

// TurnaroundStatus classifies the direction of quarterly net income.
type TurnaroundStatus string

const (
	ProfitGrowth      TurnaroundStatus = "Profit Growth"
	ProfitDeclining   TurnaroundStatus = "Profit (Declining)"
	TurnToBlack       TurnaroundStatus = "Turn to Black"
	DeficitReduction  TurnaroundStatus = "Deficit Reduction"
	DeficitWorsening  TurnaroundStatus = "Deficit (Worsening)"
	TurnToRed         TurnaroundStatus = "Turn to Red"
	TurnaroundUnknown TurnaroundStatus = "N/A"
)

// ClassifyTurnaround compares the two most recent quarterly net income figures.
// netIncome is ordered most recent first; fewer than two points yield N/A.
func ClassifyTurnaround(netIncome []float64) TurnaroundStatus {
	if len(netIncome) < 2 {
		return TurnaroundUnknown
	}
	rec, prev := netIncome[0], netIncome[1]
	switch {
	case rec > 0 && prev > 0:
		if rec > prev {
			return ProfitGrowth
		}
		return ProfitDeclining
	case rec > 0:
		return TurnToBlack
	case prev <= 0:
		if rec > prev {
			return DeficitReduction
		}
		return DeficitWorsening
	default:
		return TurnToRed
	}
}

// NewsItem is one recent headline attached to a fundamentals record.
type NewsItem struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Positive  bool      `json:"good"`
	Published time.Time `json:"published,omitempty"`
}

// Fundamentals is the cached per-symbol snapshot of metadata, valuation and news.
// Optional ratios are nil when the provider did not report them.
type Fundamentals struct {
	Symbol        string           `json:"ticker"`
	Name          string           `json:"name"`
	Sector        string           `json:"sector"`
	InstOwn       float64          `json:"inst_own"`
	Turnaround    TurnaroundStatus `json:"turnaround"`
	GoodNews      bool             `json:"good_news"`
	News          []NewsItem       `json:"news_list"`
	PER           *float64         `json:"per,omitempty"`
	PBR           *float64         `json:"pbr,omitempty"`
	PSR           *float64         `json:"psr,omitempty"`
	EVEBITDA      *float64         `json:"ev_ebitda,omitempty"`
	RevGrowth     *float64         `json:"rev_growth,omitempty"`
	EPSGrowth     *float64         `json:"eps_growth,omitempty"`
	DivYield      *float64         `json:"div_yield,omitempty"`
	RecKey        string           `json:"rec_key,omitempty"`
	RecMean       *float64         `json:"rec_mean,omitempty"`
	LastUpdated   time.Time        `json:"last_updated"`
	SchemaVersion int              `json:"schema_version"`
}

// Expired reports whether the record is older than ttl at now.
// A record exactly ttl old is still valid.
func (f *Fundamentals) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(f.LastUpdated) > ttl
}

// Float returns a pointer to v; used to fill optional ratios.
func Float(v float64) *float64 { return &v }
