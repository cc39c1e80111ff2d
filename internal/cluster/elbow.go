package cluster

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/wellness.report/internal/monitoring"
)

// Default sweep range for the elbow analysis.
const (
	DefaultKMin = 1
	DefaultKMax = 10
)

// ElbowAnalyzer computes WCSS across a range of cluster counts.
type ElbowAnalyzer struct {
	km       *KMeans
	parallel bool
}

// NewElbowAnalyzer creates an analyzer that fits each k with km. When
// parallel is set the per-k fits run concurrently; the curve is identical
// either way.
func NewElbowAnalyzer(km *KMeans, parallel bool) *ElbowAnalyzer {
	if km == nil {
		km = NewDefaultKMeans()
	}
	return &ElbowAnalyzer{km: km, parallel: parallel}
}

// ComputeCurve fits k-means for every k in [kMin, kMax] with the given seed
// and returns the WCSS per k.
//
// kMax is clamped to the number of distinct values, the largest k that can
// be partitioned without empty clusters. If kMin exceeds that limit the
// range is rejected with an InvalidRangeError.
func (a *ElbowAnalyzer) ComputeCurve(values []float64, kMin, kMax int, seed int64) (WcssCurve, error) {
	if len(values) == 0 {
		return nil, ErrEmptyInput
	}
	limit := distinctCount(values)
	if kMin < 1 || kMax < kMin {
		return nil, &InvalidRangeError{KMin: kMin, KMax: kMax, Limit: limit}
	}
	if kMax > limit {
		monitoring.Logf("[ElbowAnalyzer] clamping k_max from %d to %d distinct values", kMax, limit)
		kMax = limit
	}
	if kMin > kMax {
		return nil, &InvalidRangeError{KMin: kMin, KMax: kMax, Limit: limit}
	}

	points := make([][]float64, len(values))
	for i, v := range values {
		points[i] = []float64{v}
	}

	parts := make([]*Partition, kMax-kMin+1)
	fit := func(i int) error {
		p, err := a.km.Fit(points, kMin+i, seed)
		if err != nil {
			return err
		}
		parts[i] = p
		return nil
	}

	if a.parallel {
		var g errgroup.Group
		for i := range parts {
			g.Go(func() error { return fit(i) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range parts {
			if err := fit(i); err != nil {
				return nil, err
			}
		}
	}

	a.enforceNonIncreasing(points, parts)

	curve := make(WcssCurve, len(parts))
	for i, p := range parts {
		curve[i] = WcssPoint{K: kMin + i, WCSS: p.WCSS}
	}
	return curve, nil
}

// enforceNonIncreasing refits any k whose WCSS exceeds that of k-1,
// starting from the k-1 centroids plus the point farthest from them.
// Lloyd iterations never raise the cost, so the refit cannot be worse than
// the k-1 solution.
func (a *ElbowAnalyzer) enforceNonIncreasing(points [][]float64, parts []*Partition) {
	for i := 1; i < len(parts); i++ {
		prev := parts[i-1]
		if parts[i].WCSS <= prev.WCSS {
			continue
		}
		initial := make([][]float64, 0, len(prev.Centroids)+1)
		initial = append(initial, prev.Centroids...)
		initial = append(initial, points[farthestPoint(points, prev)])

		p, err := a.km.Refine(points, initial)
		if err != nil {
			monitoring.Logf("[ElbowAnalyzer] refit for k=%d failed: %v", len(initial), err)
			continue
		}
		if p.WCSS < parts[i].WCSS {
			parts[i] = p
		}
	}
}

func farthestPoint(points [][]float64, p *Partition) int {
	far, farDist := 0, -1.0
	for i, pt := range points {
		if d := sqDist(pt, p.Centroids[p.Labels[i]]); d > farDist {
			far, farDist = i, d
		}
	}
	return far
}

func distinctCount(values []float64) int {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := 0
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			n++
		}
	}
	return n
}
