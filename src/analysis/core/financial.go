package core

import "math"

// -----------------------------------------------------------------------------

// CalculatePercentChange returns (current-previous)/previous in percent, or 0
// when previous is 0.
func CalculatePercentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	return (current - previous) / previous * 100
}

// -----------------------------------------------------------------------------

// Round2 rounds to 2 decimals, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// -----------------------------------------------------------------------------

// Sum adds all values.
func Sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// -----------------------------------------------------------------------------

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}
