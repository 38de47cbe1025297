package routing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mohamedthameursassi/saferoute/roadgraph"
)

// equalPath compares two slices of node IDs for equality.
func equalPath(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// buildGraph creates nodes on a short east-west line (id n at lon n*0.001)
// unless positions are given, and adds the edges as specified.
func buildGraph(t *testing.T, nodes []roadgraph.Node, edges ...roadgraph.EdgeSpec) *roadgraph.Graph {
	t.Helper()
	b := roadgraph.NewBuilder()
	for _, n := range nodes {
		require.NoError(t, b.AddNode(n))
	}
	for _, e := range edges {
		require.NoError(t, b.AddEdge(e))
	}
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func lineNodes(ids ...int64) []roadgraph.Node {
	nodes := make([]roadgraph.Node, len(ids))
	for i, id := range ids {
		nodes[i] = roadgraph.Node{ID: id, Lat: 45, Lon: -73 + float64(id)*0.001}
	}
	return nodes
}

func edge(from, to int64, length, risk float64) roadgraph.EdgeSpec {
	return roadgraph.EdgeSpec{From: from, To: to, Length: length, HasLength: true, Risk: risk}
}

// abcGraph: A(1)-B(2) direct, length 100 risk 0; A-C(3)-B detour, length
// 120 with total risk 5.
func abcGraph(t *testing.T) *roadgraph.Graph {
	return buildGraph(t, lineNodes(1, 2, 3),
		edge(1, 2, 100, 0),
		edge(1, 3, 60, 2),
		edge(3, 2, 60, 3),
	)
}

// flipGraph: direct A-B is short but risky, detour via C is long and clean.
func flipGraph(t *testing.T) *roadgraph.Graph {
	return buildGraph(t, lineNodes(1, 2, 3),
		edge(1, 2, 100, 1),
		edge(1, 3, 150, 0),
		edge(3, 2, 150, 0),
	)
}
