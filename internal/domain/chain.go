package domain

// CycleWalk is a closed walk as returned by a graph store. People[i] points to People[i+1]
// and the last person points back to People[0]; Priorities[i] belongs to the edge leaving People[i].
type CycleWalk struct {
	People     []Person
	Priorities []*float64
}

// Chain is a deduplicated interlocking cycle of candidacies.
type Chain struct {
	People      []string `json:"people"`
	Length      int      `json:"length"`
	AvgPriority *float64 `json:"avgPriority"`
}

// GraphSummary bundles the tabular views of the graph.
type GraphSummary struct {
	Counts        GraphCounts   `json:"counts"`
	Relationships []EdgeSummary `json:"relationships"`
}
