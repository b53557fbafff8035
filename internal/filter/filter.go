// Package filter joins screening candidates with fundamentals and applies user filters.
package filter

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"RisingStock/internal/model"
)

// DefaultInstOwnThreshold is the ownership fraction above which institutions
// are considered supportive.
const DefaultInstOwnThreshold = 0.4

// Sentinels substituted for missing values in range filters.
const (
	MissingValuation = 0.0
	MissingGrowth    = -999.0
)

// Range is an inclusive numeric interval.
type Range struct {
	Min float64 `json:"min" query:"min"`
	Max float64 `json:"max" query:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// ParseRange parses "lo:hi" into a Range. Either bound may be omitted to leave
// that side open. An empty string yields a nil (inactive) range.
func ParseRange(s string) (*Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	lo, hi, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("range %q: want lo:hi", s)
	}
	r := &Range{Min: math.Inf(-1), Max: math.Inf(1)}
	if lo = strings.TrimSpace(lo); lo != "" {
		v, err := strconv.ParseFloat(lo, 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		r.Min = v
	}
	if hi = strings.TrimSpace(hi); hi != "" {
		v, err := strconv.ParseFloat(hi, 64)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", s, err)
		}
		r.Max = v
	}
	if r.Min > r.Max {
		return nil, fmt.Errorf("range %q: min above max", s)
	}
	return r, nil
}

// Criteria is the set of active filter predicates. Nil ranges and empty
// selections are inactive.
type Criteria struct {
	PER        *Range                   `json:"per,omitempty"`
	PBR        *Range                   `json:"pbr,omitempty"`
	RevGrowth  *Range                   `json:"rev_growth,omitempty"`
	EPSGrowth  *Range                   `json:"eps_growth,omitempty"`
	Sectors    []string                 `json:"sectors,omitempty"`
	Turnaround []model.TurnaroundStatus `json:"turnaround,omitempty"`
	InstOnly   bool                     `json:"inst_only"`
}

// Join attaches fundamentals to candidates in candidate order. When at least
// one record exists it is an inner join: candidates without a record are
// dropped. With no records at all every candidate is kept with nil
// fundamentals and the symbol as name.
func Join(cands []model.Candidate, funds map[string]*model.Fundamentals, instThreshold float64) []model.ViewRow {
	inner := false
	for _, f := range funds {
		if f != nil {
			inner = true
			break
		}
	}
	rows := make([]model.ViewRow, 0, len(cands))
	for _, c := range cands {
		row := model.ViewRow{Candidate: c, Name: c.Symbol}
		f := funds[c.Symbol]
		if f == nil && inner {
			continue
		}
		if f != nil {
			row.Fundamentals = f
			if f.Name != "" {
				row.Name = f.Name
			}
			row.InstSupport = f.InstOwn > instThreshold && c.VolSpike
		}
		rows = append(rows, row)
	}
	return rows
}

func value(p *float64, missing float64) float64 {
	if p == nil || math.IsNaN(*p) {
		return missing
	}
	return *p
}

func field(r *model.ViewRow, pick func(*model.Fundamentals) *float64, missing float64) float64 {
	if r.Fundamentals == nil {
		return missing
	}
	return value(pick(r.Fundamentals), missing)
}

func per(f *model.Fundamentals) *float64 { return f.PER }
func pbr(f *model.Fundamentals) *float64 { return f.PBR }
func rev(f *model.Fundamentals) *float64 { return f.RevGrowth }
func eps(f *model.Fundamentals) *float64 { return f.EPSGrowth }

// Match reports whether row satisfies every active predicate of c.
func (c Criteria) Match(row *model.ViewRow) bool {
	if c.PER != nil && !c.PER.Contains(field(row, per, MissingValuation)) {
		return false
	}
	if c.PBR != nil && !c.PBR.Contains(field(row, pbr, MissingValuation)) {
		return false
	}
	if c.RevGrowth != nil && !c.RevGrowth.Contains(field(row, rev, MissingGrowth)) {
		return false
	}
	if c.EPSGrowth != nil && !c.EPSGrowth.Contains(field(row, eps, MissingGrowth)) {
		return false
	}
	if len(c.Sectors) > 0 && !contains(c.Sectors, row.Sector()) {
		return false
	}
	if len(c.Turnaround) > 0 && !contains(c.Turnaround, row.Turnaround()) {
		return false
	}
	if c.InstOnly && !row.InstSupport {
		return false
	}
	return true
}

// Apply returns the rows matching c, preserving order.
func Apply(rows []model.ViewRow, c Criteria) []model.ViewRow {
	out := make([]model.ViewRow, 0, len(rows))
	for i := range rows {
		if c.Match(&rows[i]) {
			out = append(out, rows[i])
		}
	}
	return out
}

func contains[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// DefaultCriteria returns ranges wide enough to keep every row the data allows:
// PER 0..max(100, max), PBR 0..max(20, max), growth rates min(-1, min)..max(2|5, max).
func DefaultCriteria(rows []model.ViewRow) Criteria {
	perMax, pbrMax := 100.0, 20.0
	revMin, revMax := -1.0, 2.0
	epsMin, epsMax := -1.0, 5.0
	for i := range rows {
		f := rows[i].Fundamentals
		if f == nil {
			continue
		}
		if f.PER != nil {
			perMax = math.Max(perMax, *f.PER)
		}
		if f.PBR != nil {
			pbrMax = math.Max(pbrMax, *f.PBR)
		}
		if f.RevGrowth != nil {
			revMin = math.Min(revMin, *f.RevGrowth)
			revMax = math.Max(revMax, *f.RevGrowth)
		}
		if f.EPSGrowth != nil {
			epsMin = math.Min(epsMin, *f.EPSGrowth)
			epsMax = math.Max(epsMax, *f.EPSGrowth)
		}
	}
	return Criteria{
		PER:       &Range{Min: 0, Max: perMax},
		PBR:       &Range{Min: 0, Max: pbrMax},
		RevGrowth: &Range{Min: revMin, Max: revMax},
		EPSGrowth: &Range{Min: epsMin, Max: epsMax},
	}
}

// Choices lists the selectable categorical values present in rows.
type Choices struct {
	Sectors    []string                 `json:"sectors"`
	Turnaround []model.TurnaroundStatus `json:"turnaround"`
}

// Options returns the sorted distinct sectors and turnaround labels of rows.
func Options(rows []model.ViewRow) Choices {
	sectors := map[string]bool{}
	turns := map[model.TurnaroundStatus]bool{}
	for i := range rows {
		if s := rows[i].Sector(); s != "" {
			sectors[s] = true
		}
		if t := rows[i].Turnaround(); t != "" {
			turns[t] = true
		}
	}
	out := Choices{Sectors: []string{}, Turnaround: []model.TurnaroundStatus{}}
	for s := range sectors {
		out.Sectors = append(out.Sectors, s)
	}
	for t := range turns {
		out.Turnaround = append(out.Turnaround, t)
	}
	sort.Strings(out.Sectors)
	sort.Slice(out.Turnaround, func(i, j int) bool { return out.Turnaround[i] < out.Turnaround[j] })
	return out
}
