// Package roadgraph is the typed road network: intersections, directed road
// segments with geometry and length, and the risk score the aggregator
// attaches to each segment.
package roadgraph

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/mohamedthameursassi/saferoute/routeerr"
)

// Node represents a graph node (intersection).
type Node struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point returns the node position as an orb [lon, lat] point.
func (n Node) Point() orb.Point {
	return orb.Point{n.Lon, n.Lat}
}

// EdgeID is the dense index of an edge inside its graph.
type EdgeID int

// Edge is a directed road segment. Parallel edges between the same pair of
// nodes are told apart by Key. Endpoints are held by id only.
type Edge struct {
	ID       EdgeID
	From     int64
	To       int64
	Key      int
	Geometry orb.LineString
	Length   float64 // meters
	Risk     float64 // accumulated incident severity
	Name     string
}

// Graph owns all nodes and edges. Topology is fixed once built; only edge
// risk may be rewritten, by the aggregator, before the graph is shared.
type Graph struct {
	nodes map[int64]Node
	order []int64
	edges []Edge
	out   map[int64][]EdgeID
	bound orb.Bound
}

func (g *Graph) Node(id int64) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes sorted by id.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, len(g.order))
	for i, id := range g.order {
		nodes[i] = g.nodes[id]
	}
	return nodes
}

func (g *Graph) NodeCount() int { return len(g.order) }

func (g *Graph) EdgeCount() int { return len(g.edges) }

// Edge returns the edge with the given id. It panics on an id that does not
// belong to the graph, like a slice index would.
func (g *Graph) Edge(id EdgeID) Edge {
	return g.edges[id]
}

// Edges returns a copy of the edge table in id order.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

// OutEdges lists the edges leaving a node, sorted by (To, Key, ID). The
// returned slice is shared and must not be modified.
func (g *Graph) OutEdges(nodeID int64) []EdgeID {
	return g.out[nodeID]
}

// Endpoints resolves the nodes an edge connects.
func (g *Graph) Endpoints(id EdgeID) (Node, Node) {
	e := g.edges[id]
	return g.nodes[e.From], g.nodes[e.To]
}

// Bound is the lon/lat box around all nodes. It is empty for an empty graph.
func (g *Graph) Bound() orb.Bound {
	return g.bound
}

// SetRisk overwrites the risk of one edge. Concurrent calls are safe as long
// as each edge is written by a single goroutine.
func (g *Graph) SetRisk(id EdgeID, risk float64) error {
	if int(id) < 0 || int(id) >= len(g.edges) {
		return routeerr.Errorf(routeerr.InvalidInput, routeerr.StageAggregate, "set risk", "edge %d out of range", id)
	}
	if math.IsNaN(risk) || math.IsInf(risk, 0) || risk < 0 {
		return routeerr.Errorf(routeerr.InvalidInput, routeerr.StageAggregate, "set risk", "edge %d: invalid risk %v", id, risk)
	}
	g.edges[id].Risk = risk
	return nil
}

// ResetRisk clears every edge's risk back to zero.
func (g *Graph) ResetRisk() {
	for i := range g.edges {
		g.edges[i].Risk = 0
	}
}

func (g *Graph) String() string {
	return fmt.Sprintf("roadgraph(%d nodes, %d edges)", len(g.order), len(g.edges))
}
