package calculator

import (
	"errors"
)

// CalculateSMA computes the simple moving average of the given values over the specified period.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// TrailingMean averages the period values that precede the latest one; the latest
// value itself is excluded.
func TrailingMean(values []float64, period int) (float64, error) {
	if len(values) < period+1 {
		return 0, errors.New("not enough data for trailing mean")
	}
	return CalculateSMA(values[:len(values)-1], period)
}

// Ratio returns curr/avg as a percentage, or 0 when avg is zero.
func Ratio(curr, avg float64) float64 {
	if avg == 0 {
		return 0
	}
	return curr / avg * 100
}
