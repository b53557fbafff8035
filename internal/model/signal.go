package model

// Candidate is one screening result; never persisted.
type Candidate struct {
	Symbol      string  `json:"ticker"`
	VCP         bool    `json:"vcp"`
	VolSpike    bool    `json:"vol_spike"`
	Price       float64 `json:"price"`
	Volatility  float64 `json:"volatility"`
	High60      float64 `json:"high_60"`
	VolumeRatio float64 `json:"volume_ratio"`
}

// ViewRow joins a candidate with its fundamentals for one filter/render cycle.
// Fundamentals is nil when no record could be fetched.
type ViewRow struct {
	Candidate
	Name         string        `json:"name"`
	InstSupport  bool          `json:"inst_support"`
	Fundamentals *Fundamentals `json:"fundamentals,omitempty"`
}

// Sector returns the sector label, empty when fundamentals are missing.
func (r *ViewRow) Sector() string {
	if r.Fundamentals == nil {
		return ""
	}
	return r.Fundamentals.Sector
}

// Turnaround returns the turnaround label, empty when fundamentals are missing.
func (r *ViewRow) Turnaround() TurnaroundStatus {
	if r.Fundamentals == nil {
		return ""
	}
	return r.Fundamentals.Turnaround
}

// WatchlistRow is the volume analysis of one user-entered code.
type WatchlistRow struct {
	Code        string  `json:"code"`
	Symbol      string  `json:"ticker"`
	Name        string  `json:"name"`
	Domestic    bool    `json:"domestic"`
	Price       float64 `json:"price"`
	ChangePct   float64 `json:"change_pct"`
	Volume      float64 `json:"volume"`
	AvgVolume3  float64 `json:"avg_volume_3"`
	AvgVolume20 float64 `json:"avg_volume_20"`
	Ratio3      float64 `json:"ratio_3"`
	Ratio20     float64 `json:"ratio_20"`
	Qualifies   bool    `json:"qualifies"`
}
