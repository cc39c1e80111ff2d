package cluster

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// degenerateStdDev is the relative spread below which a feature is treated
// as constant. Summing identical values can leave a rounding residue in the
// variance; dividing by it would amplify noise into unit-scale values.
const degenerateStdDev = 1e-12

// FitTransform standardizes values to zero mean and unit population
// variance using statistics of this batch only.
//
// Zero-variance policy: when every value is the same (including a single
// value) the standard deviation is zero and every output is exactly 0.
// Empty input yields empty output.
func FitTransform(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	mean, std := stat.PopMeanStdDev(values, nil)
	if std <= degenerateStdDev*math.Max(1, math.Abs(mean)) {
		return out
	}
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}

// ScaleCounts standardizes entity counts, keeping entity ids aligned.
func ScaleCounts(counts []EntityCount) []ScaledFeature {
	raw := make([]float64, len(counts))
	for i, c := range counts {
		raw[i] = float64(c.Count)
	}
	scaled := FitTransform(raw)

	features := make([]ScaledFeature, len(counts))
	for i, c := range counts {
		features[i] = ScaledFeature{EntityID: c.EntityID, Value: scaled[i]}
	}
	return features
}
