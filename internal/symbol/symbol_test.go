package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidates(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"005930", []string{"005930.KS", "005930.KQ"}},
		{" 005930.kr ", []string{"005930.KS", "005930.KQ"}},
		{"aapl", []string{"AAPL"}},
		{"12345", []string{"12345"}},
		{"ABC.KR", []string{"ABC.KR"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Candidates(tt.in))
		})
	}
}

func TestIsDomestic(t *testing.T) {
	assert.True(t, IsDomestic("000660"))
	assert.True(t, IsDomestic("000660.KR"))
	assert.False(t, IsDomestic("MSFT"))
}

func TestMinRows(t *testing.T) {
	assert.Equal(t, 21, MinRows(false))
	assert.Equal(t, 22, MinRows(true))
}

func TestSplitCodes(t *testing.T) {
	got := SplitCodes("005930, aapl\n000660.KR;;  msft")
	assert.Equal(t, []string{"005930", "AAPL", "000660", "MSFT"}, got)
}
