package cluster

// Record is one beneficiary row reduced to the entity (center) it belongs to.
type Record struct {
	EntityID string
}

// EntityCount is the number of records seen for one entity.
type EntityCount struct {
	EntityID string `json:"entity_id"`
	Count    int    `json:"count"`
}

// ScaledFeature is the standardized count of one entity.
type ScaledFeature struct {
	EntityID string  `json:"entity_id"`
	Value    float64 `json:"value"`
}

// WcssPoint is the within-cluster sum of squares for one cluster count.
type WcssPoint struct {
	K    int     `json:"k"`
	WCSS float64 `json:"wcss"`
}

// WcssCurve is ordered by ascending K and non-increasing in WCSS.
type WcssCurve []WcssPoint

// Ks returns the cluster counts of the curve.
func (c WcssCurve) Ks() []int {
	ks := make([]int, len(c))
	for i, p := range c {
		ks[i] = p.K
	}
	return ks
}

// Values returns the WCSS values of the curve.
func (c WcssCurve) Values() []float64 {
	vs := make([]float64, len(c))
	for i, p := range c {
		vs[i] = p.WCSS
	}
	return vs
}

// ClusterAssignment labels one entity with a cluster in [0, k-1].
type ClusterAssignment struct {
	EntityID string `json:"entity_id"`
	Label    int    `json:"cluster"`
}
