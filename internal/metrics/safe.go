package metrics

import "math"

// SafeRatio returns numerator/denominator, or nil when either value is not
// finite or the denominator is not positive.
func SafeRatio(numerator, denominator float64) *float64 {
	if !isFinite(numerator) || !isFinite(denominator) || denominator <= 0 {
		return nil
	}
	r := numerator / denominator
	return &r
}

// SafeDropPct returns (baseline - current) / baseline.
// Positive means the metric dropped, negative means it improved.
// Returns nil when current is missing or baseline is not positive.
func SafeDropPct(current *float64, baseline float64) *float64 {
	if current == nil || !isFinite(*current) {
		return nil
	}
	if !isFinite(baseline) || baseline <= 0 {
		return nil
	}
	d := (baseline - *current) / baseline
	return &d
}

// Average returns the mean of all non-nil values, or nil if there are none.
func Average(values []*float64) *float64 {
	sum := 0.0
	n := 0
	for _, v := range values {
		if v == nil || !isFinite(*v) {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
