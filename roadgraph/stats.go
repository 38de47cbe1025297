package roadgraph

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the risk annotation of a graph.
type Stats struct {
	Nodes        int     `json:"nodes"`
	Edges        int     `json:"edges"`
	RiskyEdges   int     `json:"riskyEdges"`
	TotalLengthM float64 `json:"totalLengthM"`
	TotalRisk    float64 `json:"totalRisk"`
	MeanRisk     float64 `json:"meanRisk"`
	StdDevRisk   float64 `json:"stdDevRisk"`
	P95Risk      float64 `json:"p95Risk"`
	MaxRisk      float64 `json:"maxRisk"`
}

// Summarize computes Stats over every edge of g.
func Summarize(g *Graph) Stats {
	s := Stats{Nodes: g.NodeCount(), Edges: g.EdgeCount()}
	if len(g.edges) == 0 {
		return s
	}

	risks := make([]float64, len(g.edges))
	lengths := make([]float64, len(g.edges))
	for i, e := range g.edges {
		risks[i] = e.Risk
		lengths[i] = e.Length
		if e.Risk > 0 {
			s.RiskyEdges++
		}
	}

	s.TotalLengthM = floats.Sum(lengths)
	s.TotalRisk = floats.Sum(risks)
	s.MaxRisk = floats.Max(risks)
	s.MeanRisk = stat.Mean(risks, nil)
	if len(risks) > 1 {
		s.StdDevRisk = stat.StdDev(risks, nil)
	}

	sort.Float64s(risks)
	s.P95Risk = stat.Quantile(0.95, stat.Empirical, risks, nil)

	return s
}
