package cluster

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/wellness.report/internal/config"
	"github.com/banshee-data/wellness.report/internal/monitoring"
)

// Sources of the cluster count used by a run.
const (
	KSourceRequested = "requested"
	KSourceKnee      = "knee"
	KSourceDefault   = "default"
)

// DefaultK is the cluster count used when no knee is found.
const DefaultK = 3

// DefaultSeed seeds k-means++ when no seed is configured.
const DefaultSeed int64 = 42

// PipelineParams holds every tunable of a pipeline run.
type PipelineParams struct {
	KMin            int
	KMax            int
	DefaultK        int
	Seed            int64
	KneeSensitivity float64
	ParallelSweep   bool
	KMeans          KMeansOptions
}

// DefaultPipelineParams returns production-default pipeline parameters.
func DefaultPipelineParams() PipelineParams {
	return PipelineParams{
		KMin:            DefaultKMin,
		KMax:            DefaultKMax,
		DefaultK:        DefaultK,
		Seed:            DefaultSeed,
		KneeSensitivity: DefaultKneeSensitivity,
		KMeans:          DefaultKMeansOptions(),
	}
}

// PipelineParamsFromConfig builds PipelineParams from a loaded
// ClusteringConfig. Unset fields fall back to the config defaults.
func PipelineParamsFromConfig(cfg *config.ClusteringConfig) PipelineParams {
	if cfg == nil {
		cfg = config.EmptyClusteringConfig()
	}
	return PipelineParams{
		KMin:            cfg.GetKMin(),
		KMax:            cfg.GetKMax(),
		DefaultK:        cfg.GetDefaultK(),
		Seed:            cfg.GetSeed(),
		KneeSensitivity: cfg.GetKneeSensitivity(),
		ParallelSweep:   cfg.GetParallelSweep(),
		KMeans: KMeansOptions{
			MaxIterations: cfg.GetMaxIterations(),
			Tolerance:     cfg.GetTolerance(),
			Restarts:      cfg.GetRestarts(),
		},
	}
}

// ClusterSummary describes one cluster in beneficiary-count units.
type ClusterSummary struct {
	Label     int     `json:"cluster"`
	Size      int     `json:"size"`
	MinCount  int     `json:"min_count"`
	MaxCount  int     `json:"max_count"`
	MeanCount float64 `json:"mean_count"`
}

// Result is the output of one pipeline run.
type Result struct {
	RunID       string              `json:"run_id"`
	Seed        int64               `json:"seed"`
	Counts      []EntityCount       `json:"counts"`
	Features    []ScaledFeature     `json:"features"`
	Curve       WcssCurve           `json:"curve"`
	Knee        *int                `json:"knee"` // nil when no knee was found
	ChosenK     int                 `json:"k"`
	KSource     string              `json:"k_source"`
	Assignments []ClusterAssignment `json:"assignments"`
	Clusters    []ClusterSummary    `json:"clusters"`
}

// Pipeline runs aggregation, scaling, the elbow sweep and assignment.
type Pipeline struct {
	params   PipelineParams
	km       *KMeans
	analyzer *ElbowAnalyzer
}

// NewPipeline creates a pipeline with the given parameters.
func NewPipeline(params PipelineParams) *Pipeline {
	km := NewKMeans(params.KMeans)
	params.KMeans = km.Options()
	if params.DefaultK < 1 {
		params.DefaultK = DefaultK
	}
	return &Pipeline{
		params:   params,
		km:       km,
		analyzer: NewElbowAnalyzer(km, params.ParallelSweep),
	}
}

// Params returns the effective pipeline parameters.
func (p *Pipeline) Params() PipelineParams {
	return p.params
}

// Run clusters the entities referenced by records. A positive requestedK
// is used as-is and must be valid for the entity count; otherwise the knee
// suggestion or the default k is used, bounded by the largest k on the
// curve. When a k is requested, an unusable sweep range only leaves the
// curve empty.
func (p *Pipeline) Run(records []Record, requestedK int) (*Result, error) {
	counts := Aggregate(records)
	if len(counts) == 0 {
		return nil, ErrEmptyInput
	}
	features := ScaleCounts(counts)

	values := make([]float64, len(features))
	for i, f := range features {
		values[i] = f.Value
	}
	curve, err := p.analyzer.ComputeCurve(values, p.params.KMin, p.params.KMax, p.params.Seed)
	switch {
	case err == nil:
	case requestedK > 0 && errors.Is(err, ErrInvalidRange):
		monitoring.Logf("[Pipeline] skipping elbow sweep for requested k=%d: %v", requestedK, err)
		curve = WcssCurve{}
	default:
		return nil, fmt.Errorf("failed to compute elbow curve: %w", err)
	}

	var knee *int
	if k, ok := FindKnee(curve, p.params.KneeSensitivity); ok {
		knee = &k
	}

	maxK := len(counts)
	if len(curve) > 0 {
		maxK = curve[len(curve)-1].K
	}
	k, source := ResolveK(requestedK, knee, p.params.DefaultK, maxK)
	assignments, err := p.km.Assign(features, k, p.params.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to assign clusters: %w", err)
	}

	res := &Result{
		RunID:       uuid.New().String(),
		Seed:        p.params.Seed,
		Counts:      counts,
		Features:    features,
		Curve:       curve,
		Knee:        knee,
		ChosenK:     k,
		KSource:     source,
		Assignments: assignments,
		Clusters:    Summarize(counts, assignments, k),
	}
	monitoring.Logf("[Pipeline] run=%s entities=%d k=%d (%s)", res.RunID, len(counts), k, source)
	return res, nil
}

// ResolveK picks the cluster count for a run. A positive request wins and
// is not corrected. Otherwise the knee, then defaultK, is used after
// clamping to [1, maxK], where maxK is the largest k the data supports
// without empty clusters.
func ResolveK(requested int, knee *int, defaultK, maxK int) (k int, source string) {
	if requested > 0 {
		return requested, KSourceRequested
	}
	k, source = defaultK, KSourceDefault
	if knee != nil {
		k, source = *knee, KSourceKnee
	}
	return min(max(k, 1), max(maxK, 1)), source
}

// Summarize describes each of the k clusters in count units. Labels that
// received no entity are reported with Size 0.
func Summarize(counts []EntityCount, assignments []ClusterAssignment, k int) []ClusterSummary {
	byID := make(map[string]int, len(counts))
	for _, c := range counts {
		byID[c.EntityID] = c.Count
	}

	sums := make([]ClusterSummary, k)
	totals := make([]int, k)
	for j := range sums {
		sums[j].Label = j
	}
	for _, a := range assignments {
		if a.Label < 0 || a.Label >= k {
			continue
		}
		c := byID[a.EntityID]
		s := &sums[a.Label]
		if s.Size == 0 || c < s.MinCount {
			s.MinCount = c
		}
		if s.Size == 0 || c > s.MaxCount {
			s.MaxCount = c
		}
		s.Size++
		totals[a.Label] += c
	}
	for j := range sums {
		if sums[j].Size > 0 {
			sums[j].MeanCount = float64(totals[j]) / float64(sums[j].Size)
		}
	}
	return sums
}
