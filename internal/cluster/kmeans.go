package cluster

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Default k-means parameters.
const (
	DefaultMaxIterations = 300
	DefaultTolerance     = 1e-4
	DefaultRestarts      = 10
)

// KMeansOptions holds k-means parameters. Zero values select the defaults.
type KMeansOptions struct {
	MaxIterations int     // Lloyd iteration cap per restart
	Tolerance     float64 // Converged when no centroid moves further than this
	Restarts      int     // Independent k-means++ seedings; the lowest WCSS wins
}

// DefaultKMeansOptions returns production-default k-means parameters.
func DefaultKMeansOptions() KMeansOptions {
	return KMeansOptions{
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
		Restarts:      DefaultRestarts,
	}
}

// KMeans implements seeded centroid-based partitioning.
//
// Randomness only enters through k-means++ seeding, which draws from a
// generator built from the seed passed to each call. Identical points,
// k and seed always produce identical labels.
//
// Empty clusters: a centroid that receives no points is moved onto the
// point farthest from its own centroid. When k does not exceed the number
// of distinct points every cluster ends up non-empty. With fewer distinct
// points than k the surplus clusters stay empty and their labels are
// unused.
type KMeans struct {
	opts KMeansOptions
}

// NewKMeans creates a k-means clusterer, filling unset options with defaults.
func NewKMeans(opts KMeansOptions) *KMeans {
	def := DefaultKMeansOptions()
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = def.Tolerance
	}
	if opts.Restarts <= 0 {
		opts.Restarts = def.Restarts
	}
	return &KMeans{opts: opts}
}

// NewDefaultKMeans creates a k-means clusterer with default parameters.
func NewDefaultKMeans() *KMeans {
	return NewKMeans(DefaultKMeansOptions())
}

// Options returns the effective k-means parameters.
func (km *KMeans) Options() KMeansOptions {
	return km.opts
}

// Partition is the outcome of one k-means fit.
type Partition struct {
	Labels     []int       // Label per point, renumbered by first appearance
	Centroids  [][]float64 // Centroid per label
	WCSS       float64     // Sum of squared distances to the assigned centroid
	Iterations int
	Converged  bool
}

// Sizes returns the number of points per label.
func (p *Partition) Sizes() []int {
	sizes := make([]int, len(p.Centroids))
	for _, l := range p.Labels {
		sizes[l]++
	}
	return sizes
}

// Assign clusters the scaled features into k groups. Every feature gets
// exactly one assignment, in input order.
//
// k must lie in [1, len(features)]; anything else is reported as an
// InvalidClusterCountError and never corrected here.
func (km *KMeans) Assign(features []ScaledFeature, k int, seed int64) ([]ClusterAssignment, error) {
	if len(features) == 0 {
		return nil, ErrEmptyInput
	}
	seen := make(map[string]struct{}, len(features))
	points := make([][]float64, len(features))
	for i, f := range features {
		if _, dup := seen[f.EntityID]; dup {
			return nil, fmt.Errorf("duplicate entity %q in features", f.EntityID)
		}
		seen[f.EntityID] = struct{}{}
		points[i] = []float64{f.Value}
	}

	p, err := km.Fit(points, k, seed)
	if err != nil {
		return nil, err
	}

	out := make([]ClusterAssignment, len(features))
	for i, f := range features {
		out[i] = ClusterAssignment{EntityID: f.EntityID, Label: p.Labels[i]}
	}
	return out, nil
}

// Fit runs k-means over n-dimensional points and returns the best partition
// across all restarts.
func (km *KMeans) Fit(points [][]float64, k int, seed int64) (*Partition, error) {
	if err := validatePoints(points); err != nil {
		return nil, err
	}
	if k < 1 || k > len(points) {
		return nil, &InvalidClusterCountError{K: k, Entities: len(points)}
	}

	rng := rand.New(rand.NewSource(seed))
	var best *Partition
	for r := 0; r < km.opts.Restarts; r++ {
		p := km.lloyd(points, seedPlusPlus(points, k, rng))
		if best == nil || p.WCSS < best.WCSS {
			best = p
		}
	}
	canonicalize(best)
	return best, nil
}

// Refine runs Lloyd iterations from the given initial centroids. No
// randomness is involved. The returned WCSS never exceeds the cost of
// assigning every point to its nearest initial centroid.
func (km *KMeans) Refine(points [][]float64, initial [][]float64) (*Partition, error) {
	if err := validatePoints(points); err != nil {
		return nil, err
	}
	if len(initial) < 1 || len(initial) > len(points) {
		return nil, &InvalidClusterCountError{K: len(initial), Entities: len(points)}
	}
	centroids := make([][]float64, len(initial))
	for i, c := range initial {
		if len(c) != len(points[0]) {
			return nil, fmt.Errorf("centroid %d has dimension %d, want %d", i, len(c), len(points[0]))
		}
		centroids[i] = append([]float64(nil), c...)
	}
	p := km.lloyd(points, centroids)
	canonicalize(p)
	return p, nil
}

func validatePoints(points [][]float64) error {
	if len(points) == 0 {
		return ErrEmptyInput
	}
	dim := len(points[0])
	if dim == 0 {
		return fmt.Errorf("points have no dimensions")
	}
	for i, p := range points {
		if len(p) != dim {
			return fmt.Errorf("point %d has dimension %d, want %d", i, len(p), dim)
		}
		if floats.HasNaN(p) {
			return fmt.Errorf("point %d contains NaN", i)
		}
	}
	return nil
}

// lloyd alternates nearest-centroid assignment and centroid recomputation
// until labels stop changing, no centroid moves more than the tolerance,
// or the iteration cap is reached. It takes ownership of centroids.
func (km *KMeans) lloyd(points [][]float64, centroids [][]float64) *Partition {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	p := &Partition{}
	for iter := 1; iter <= km.opts.MaxIterations; iter++ {
		p.Iterations = iter
		changed := assignNearest(points, centroids, labels)
		reseedEmpty(points, centroids, labels)

		next := recomputeCentroids(points, labels, centroids)
		shift := 0.0
		for j := range centroids {
			shift = math.Max(shift, floats.Distance(centroids[j], next[j], 2))
		}
		centroids = next

		if !changed || shift <= km.opts.Tolerance {
			p.Converged = true
			break
		}
	}

	// Final assignment against the final centroids keeps labels and WCSS
	// consistent with the reported centroids.
	assignNearest(points, centroids, labels)
	reseedEmpty(points, centroids, labels)

	p.Labels = labels
	p.Centroids = centroids
	p.WCSS = wcss(points, centroids, labels)
	return p
}

// seedPlusPlus picks k initial centroids with k-means++ D² sampling.
func seedPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), points[rng.Intn(n)]...))

	dist := make([]float64, n)
	for i, pt := range points {
		dist[i] = sqDist(pt, centroids[0])
	}

	for len(centroids) < k {
		total := floats.Sum(dist)
		idx := -1
		if total > 0 {
			target := rng.Float64() * total
			cumulative := 0.0
			for i, d := range dist {
				if d == 0 {
					continue
				}
				cumulative += d
				idx = i
				if cumulative > target {
					break
				}
			}
		}
		if idx < 0 {
			// Every point coincides with a chosen centroid.
			idx = rng.Intn(n)
		}

		c := append([]float64(nil), points[idx]...)
		centroids = append(centroids, c)
		for i, pt := range points {
			dist[i] = math.Min(dist[i], sqDist(pt, c))
		}
	}
	return centroids
}

// assignNearest labels each point with its nearest centroid (ties go to the
// lowest index) and reports whether any label changed.
func assignNearest(points [][]float64, centroids [][]float64, labels []int) bool {
	changed := false
	for i, pt := range points {
		best, bestDist := 0, math.Inf(1)
		for j, c := range centroids {
			if d := sqDist(pt, c); d < bestDist {
				best, bestDist = j, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// reseedEmpty moves each empty centroid onto the point farthest from its
// own centroid, taken from a cluster that keeps at least one other member.
func reseedEmpty(points [][]float64, centroids [][]float64, labels []int) {
	sizes := make([]int, len(centroids))
	for _, l := range labels {
		sizes[l]++
	}

	for j := range centroids {
		if sizes[j] > 0 {
			continue
		}
		far, farDist := -1, 0.0
		for i, pt := range points {
			if sizes[labels[i]] < 2 {
				continue
			}
			if d := sqDist(pt, centroids[labels[i]]); d > farDist {
				far, farDist = i, d
			}
		}
		if far < 0 {
			// Remaining points all sit on their centroids.
			continue
		}
		sizes[labels[far]]--
		sizes[j]++
		labels[far] = j
		centroids[j] = append([]float64(nil), points[far]...)
	}
}

// recomputeCentroids returns the mean of each cluster. Empty clusters keep
// their previous centroid.
func recomputeCentroids(points [][]float64, labels []int, prev [][]float64) [][]float64 {
	dim := len(points[0])
	sums := make([][]float64, len(prev))
	counts := make([]int, len(prev))
	for j := range sums {
		sums[j] = make([]float64, dim)
	}
	for i, pt := range points {
		floats.Add(sums[labels[i]], pt)
		counts[labels[i]]++
	}
	for j := range sums {
		if counts[j] == 0 {
			copy(sums[j], prev[j])
			continue
		}
		floats.Scale(1/float64(counts[j]), sums[j])
	}
	return sums
}

func wcss(points [][]float64, centroids [][]float64, labels []int) float64 {
	total := 0.0
	for i, pt := range points {
		total += sqDist(pt, centroids[labels[i]])
	}
	return total
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

// canonicalize renumbers labels in order of first appearance so identical
// partitions always carry identical labels. Empty clusters go last.
func canonicalize(p *Partition) {
	k := len(p.Centroids)
	remap := make([]int, k)
	for j := range remap {
		remap[j] = -1
	}
	next := 0
	for _, l := range p.Labels {
		if remap[l] < 0 {
			remap[l] = next
			next++
		}
	}
	for j := range remap {
		if remap[j] < 0 {
			remap[j] = next
			next++
		}
	}

	centroids := make([][]float64, k)
	for j, c := range p.Centroids {
		centroids[remap[j]] = c
	}
	for i, l := range p.Labels {
		p.Labels[i] = remap[l]
	}
	p.Centroids = centroids
}
