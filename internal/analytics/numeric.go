package analytics

import "math"

// safeDivide returns def when the denominator is zero or not finite, or
// when the quotient itself is not finite.
func safeDivide(num, den, def float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return def
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return def
	}
	return r
}

// roundHalfUp rounds to the nearest integer with halves going toward +Inf.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

func round1(v float64) float64 {
	return roundHalfUp(v*10) / 10
}

func round2(v float64) float64 {
	return roundHalfUp(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// GradeFor maps a score onto the letter grade table.
func GradeFor(score float64) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// present reports whether an optional metadata value was supplied.
// Zero is treated the same as absent.
func present(v *float64) bool {
	return v != nil && *v != 0 && !math.IsNaN(*v)
}
