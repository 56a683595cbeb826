// Package scoring reduces per-phase ratings into one bounded overall score.
// Fully deterministic: the ratings oracle's own overall number is never
// trusted, only this computation is authoritative.
package scoring

import (
	"math"
	"strconv"

	"interview-agent/internal/domain"
)

const maxPhaseRating = 10

// The punitive curve is product-specified grading policy, not a derived
// formula: scaled results at or above a breakpoint lose a fixed deduction.
// Harsh grading is intentional; change these only on product direction.
const (
	curveBreakExcellent = 90
	curveBreakStrong    = 75
	curveBreakDecent    = 60

	deductionExcellent = 12
	deductionStrong    = 8
	deductionDecent    = 5
)

// Aggregate sums the phase ratings (non-numeric or missing ratings count as
// zero), scales the sum to 0-100 against the maximum possible sum, applies
// the punitive curve, and clamps to [0,100]. An empty list scores 0.
func Aggregate(scores []domain.PhaseScore) int {
	if len(scores) == 0 {
		return 0
	}

	var sum float64
	for _, s := range scores {
		sum += ratingValue(s.Score)
	}

	maxSum := float64(len(scores) * maxPhaseRating)
	scaled := int(math.Round(sum * 100 / maxSum))

	switch {
	case scaled >= curveBreakExcellent:
		scaled -= deductionExcellent
	case scaled >= curveBreakStrong:
		scaled -= deductionStrong
	case scaled >= curveBreakDecent:
		scaled -= deductionDecent
	}

	return clamp(scaled, 0, 100)
}

// ratingValue coerces an untrusted rating to a number in [0,10]. The oracle
// sometimes returns ratings as strings; anything unparseable counts as zero.
func ratingValue(raw any) float64 {
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		v = parsed
	default:
		return 0
	}
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > maxPhaseRating {
		return maxPhaseRating
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
