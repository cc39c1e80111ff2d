package cluster

import "math"

// DefaultKneeSensitivity is the Kneedle sensitivity S. Larger values demand
// a more pronounced bend before a knee is reported.
const DefaultKneeSensitivity = 1.0

// FindKnee locates the elbow of a convex, decreasing WCSS curve with the
// Kneedle algorithm and returns its k.
//
// ok is false when there is no suggestion: fewer than three points, a flat
// curve, or no point where the bend exceeds the sensitivity threshold.
// Callers fall back to a default k in that case.
func FindKnee(curve WcssCurve, sensitivity float64) (k int, ok bool) {
	n := len(curve)
	if n < 3 {
		return 0, false
	}
	if sensitivity < 0 || math.IsNaN(sensitivity) {
		sensitivity = DefaultKneeSensitivity
	}

	xs := make([]float64, n)
	for i, p := range curve {
		xs[i] = float64(p.K)
	}
	ys := curve.Values()

	xn, okX := normalize(xs)
	yn, okY := normalize(ys)
	if !okX || !okY {
		return 0, false
	}

	// Flip the decreasing convex curve so the knee becomes a maximum of
	// the difference curve.
	diff := make([]float64, n)
	for i := range diff {
		diff[i] = (1 - yn[i]) - xn[i]
	}

	isMax := make([]bool, n)
	isMin := make([]bool, n)
	first := -1
	for i := range diff {
		lo, hi := diff[max(i-1, 0)], diff[min(i+1, n-1)]
		isMax[i] = diff[i] >= lo && diff[i] >= hi
		isMin[i] = diff[i] <= lo && diff[i] <= hi
		if isMax[i] && first < 0 {
			first = i
		}
	}
	if first < 0 {
		return 0, false
	}

	step := math.Abs((xn[n-1] - xn[0]) / float64(n-1))
	threshold, thresholdIdx := 0.0, first
	for i := first; i < n-1; i++ {
		if isMax[i] {
			threshold = diff[i] - sensitivity*step
			thresholdIdx = i
		}
		if isMin[i] {
			threshold = 0
		}
		if diff[i+1] < threshold {
			return curve[thresholdIdx].K, true
		}
	}
	return 0, false
}

// normalize rescales values to [0, 1]. ok is false for a constant series.
func normalize(values []float64) (out []float64, ok bool) {
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		return nil, false
	}
	out = make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - lo) / span
	}
	return out, true
}
