package calculator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RisingStock/internal/model"
)

func bars(highs, lows []float64) []model.OHLCV {
	out := make([]model.OHLCV, len(highs))
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range highs {
		out[i] = model.OHLCV{Time: start.AddDate(0, 0, i), High: highs[i], Low: lows[i], Close: lows[i]}
	}
	return out
}

func TestWindowRange(t *testing.T) {
	b := bars([]float64{500, 10, 12, 11}, []float64{1, 8, 9, 7})

	high, low, err := WindowRange(b, 3)
	require.NoError(t, err)
	assert.Equal(t, 12.0, high, "bar outside window ignored")
	assert.Equal(t, 7.0, low)

	_, _, err = WindowRange(b, 5)
	assert.Error(t, err)
	_, _, err = WindowRange(b, 0)
	assert.Error(t, err)
}

func TestVolatility(t *testing.T) {
	tests := []struct {
		name      string
		high, low float64
		want      float64
		wantErr   bool
	}{
		{"flat", 100, 100, 0, false},
		{"twenty percent", 100, 80, 0.2, false},
		{"zero high", 0, 0, 0, true},
		{"inverted", 10, 20, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Volatility(tt.high, tt.low)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestCalculateSMA(t *testing.T) {
	got, err := CalculateSMA([]float64{1, 2, 3, 4}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.5, got)

	_, err = CalculateSMA([]float64{1}, 2)
	assert.Error(t, err)
	_, err = CalculateSMA([]float64{1}, 0)
	assert.Error(t, err)
}

func TestTrailingMeanExcludesLatest(t *testing.T) {
	got, err := TrailingMean([]float64{100, 2, 4, 1000}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	_, err = TrailingMean([]float64{1, 2}, 2)
	assert.Error(t, err)
}

func TestRatioAndChange(t *testing.T) {
	assert.Equal(t, 0.0, Ratio(10, 0))
	assert.Equal(t, 200.0, Ratio(20, 10))
	assert.Equal(t, 0.0, ChangePct(5, 0))
	assert.InDelta(t, -10.0, ChangePct(90, 100), 1e-12)
}
