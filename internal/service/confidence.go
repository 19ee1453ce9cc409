package service

import "math"

// Confidence converts an occurrence count within a population into a score
// in [0,1]. The denominator is floored at 1, so an empty population never
// divides by zero.
func Confidence(occurrences, population int) float64 {
	denom := math.Max(float64(population), 1)
	return math.Min(1, float64(occurrences)/denom)
}
