package calculator

import (
	"errors"
	"math"

	"RisingStock/internal/model"
)

// WindowRange scans the most recent n bars and returns the maximum High and minimum Low.
func WindowRange(bars []model.OHLCV, n int) (high, low float64, err error) {
	if n <= 0 {
		return 0, 0, errors.New("window must be positive")
	}
	if len(bars) < n {
		return 0, 0, errors.New("not enough bars for window range")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := len(bars) - n; i < len(bars); i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// Volatility returns the range contraction ratio (high-low)/high.
func Volatility(high, low float64) (float64, error) {
	if high <= 0 {
		return 0, errors.New("high must be positive")
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	return (high - low) / high, nil
}

// ChangePct returns the percentage change from prev to curr.
func ChangePct(curr, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return (curr - prev) / prev * 100
}
