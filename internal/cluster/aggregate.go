package cluster

// Aggregate counts records per entity. Entities appear in the order they
// are first seen. An empty input yields an empty, non-nil result.
func Aggregate(records []Record) []EntityCount {
	counts := make([]EntityCount, 0)
	index := make(map[string]int)
	for _, r := range records {
		i, ok := index[r.EntityID]
		if !ok {
			i = len(counts)
			index[r.EntityID] = i
			counts = append(counts, EntityCount{EntityID: r.EntityID})
		}
		counts[i].Count++
	}
	return counts
}
