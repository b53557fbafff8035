package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RisingStock/internal/model"
)

func f(v float64) *float64 { return &v }

func sampleRows() []model.ViewRow {
	cands := []model.Candidate{
		{Symbol: "AAA", VCP: true, VolSpike: true},
		{Symbol: "BBB", VCP: true, VolSpike: false},
		{Symbol: "CCC", VCP: true, VolSpike: true},
		{Symbol: "DDD", VCP: true, VolSpike: true},
	}
	funds := map[string]*model.Fundamentals{
		"AAA": {Name: "Alpha", Sector: "Technology", InstOwn: 0.7, Turnaround: model.ProfitGrowth,
			PER: f(25), PBR: f(4), RevGrowth: f(0.3), EPSGrowth: f(0.5)},
		"BBB": {Name: "Beta", Sector: "Energy", InstOwn: 0.9, Turnaround: model.TurnToBlack,
			PER: f(150), PBR: f(1), RevGrowth: f(-0.2)},
		"CCC": {},
		"DDD": {Name: "", Sector: "Technology", InstOwn: 0.4, Turnaround: model.DeficitReduction},
	}
	return Join(cands, funds, DefaultInstOwnThreshold)
}

func symbols(rows []model.ViewRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Symbol
	}
	return out
}

func TestJoin(t *testing.T) {
	rows := sampleRows()
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"AAA", "BBB", "CCC", "DDD"}, symbols(rows))

	assert.Equal(t, "Alpha", rows[0].Name)
	assert.True(t, rows[0].InstSupport)
	assert.False(t, rows[1].InstSupport, "no volume spike")
	assert.Equal(t, "CCC", rows[2].Name, "empty name falls back to symbol")
	assert.False(t, rows[2].InstSupport)
	assert.False(t, rows[3].InstSupport, "ownership must exceed 0.4")
	assert.Equal(t, "DDD", rows[3].Name)
}

func TestJoinDropsCandidatesWithoutRecord(t *testing.T) {
	cands := []model.Candidate{{Symbol: "AAA"}, {Symbol: "BBB"}}
	funds := map[string]*model.Fundamentals{"AAA": {Name: "Alpha"}}

	rows := Join(cands, funds, DefaultInstOwnThreshold)
	assert.Equal(t, []string{"AAA"}, symbols(rows))
}

func TestJoinWithoutAnyFundamentals(t *testing.T) {
	cands := []model.Candidate{{Symbol: "AAA"}, {Symbol: "BBB"}}

	for _, funds := range []map[string]*model.Fundamentals{nil, {}, {"AAA": nil}} {
		rows := Join(cands, funds, DefaultInstOwnThreshold)
		require.Len(t, rows, 2)
		assert.Nil(t, rows[0].Fundamentals)
		assert.Equal(t, "BBB", rows[1].Name)
	}
}

func TestApply(t *testing.T) {
	rows := sampleRows()
	tests := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"no filters", Criteria{}, []string{"AAA", "BBB", "CCC", "DDD"}},
		{"per range missing counts as zero", Criteria{PER: &Range{0, 100}}, []string{"AAA", "CCC", "DDD"}},
		{"per lower bound excludes missing", Criteria{PER: &Range{1, 100}}, []string{"AAA"}},
		{"growth missing is -999", Criteria{RevGrowth: &Range{-1, 2}}, []string{"AAA", "BBB"}},
		{"positive eps only", Criteria{EPSGrowth: &Range{0.01, 5}}, []string{"AAA"}},
		{"sector", Criteria{Sectors: []string{"Technology"}}, []string{"AAA", "DDD"}},
		{"turnaround", Criteria{Turnaround: []model.TurnaroundStatus{model.TurnToBlack, model.DeficitReduction}}, []string{"BBB", "DDD"}},
		{"inst only", Criteria{InstOnly: true}, []string{"AAA"}},
		{"sector passes but range fails", Criteria{Sectors: []string{"Energy"}, PER: &Range{0, 100}}, []string{}},
		{"inclusive bounds", Criteria{PER: &Range{25, 25}, PBR: &Range{4, 4}}, []string{"AAA"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, symbols(Apply(rows, tt.c)))
		})
	}
}

func TestDefaultCriteria(t *testing.T) {
	c := DefaultCriteria(sampleRows())
	assert.Equal(t, Range{0, 150}, *c.PER)
	assert.Equal(t, Range{0, 20}, *c.PBR)
	assert.Equal(t, Range{-1, 2}, *c.RevGrowth)
	assert.Equal(t, Range{-1, 5}, *c.EPSGrowth)

	empty := DefaultCriteria(nil)
	assert.Equal(t, Range{0, 100}, *empty.PER)
}

func TestDefaultCriteriaDropsOnlyMissingGrowth(t *testing.T) {
	rows := sampleRows()
	got := symbols(Apply(rows, DefaultCriteria(rows)))
	assert.Equal(t, []string{"AAA"}, got, "rows with a missing growth rate fall below the default lower bound")
}

func TestOptions(t *testing.T) {
	o := Options(sampleRows())
	assert.Equal(t, []string{"Energy", "Technology"}, o.Sectors)
	assert.Equal(t, []model.TurnaroundStatus{model.DeficitReduction, model.ProfitGrowth, model.TurnToBlack}, o.Turnaround)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		want    *Range
		wantErr bool
	}{
		{"", nil, false},
		{"5:20", &Range{5, 20}, false},
		{" -0.5 : 1 ", &Range{-0.5, 1}, false},
		{"10:", &Range{10, math.Inf(1)}, false},
		{":3", &Range{math.Inf(-1), 3}, false},
		{"7", nil, true},
		{"a:3", nil, true},
		{"5:1", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRange(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
