package utils

import "math"

// Round rounds x to the given number of decimal places, halves away from zero.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// Clamp01 limits x to [0, 1].
func Clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
