package util

import (
	"math"
	"strconv"
	"strings"
)

// Round rounds v to scale decimal places.
func Round(v float64, scale int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f := math.Pow10(scale)
	return math.Round(v*f) / f
}

// SafeNum maps NaN and infinities to 0 so values can be persisted and
// encoded as "feature absent".
func SafeNum(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// PercentChange returns the signed percent move from a reference price to a
// target price, rounded to two decimals. A zero reference yields 0.
func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return Round((to-from)/from*100, 2)
}

// VolatilityPercent is the band width relative to the lower band.
func VolatilityPercent(upper, lower float64) float64 {
	if lower <= 0 || math.IsNaN(upper) || math.IsNaN(lower) {
		return 0
	}
	return (upper - lower) / lower * 100
}

// DecimalPlaces counts the decimal digits of v's shortest representation.
func DecimalPlaces(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}
