package routing

import (
	"container/heap"
	"context"
	"math"

	"github.com/mohamedthameursassi/saferoute/roadgraph"
	"github.com/mohamedthameursassi/saferoute/routeerr"
)

// cancellation is checked once per this many settled nodes
const ctxCheckEvery = 1024

// Path is a minimum-weight node sequence and the edges joining it.
type Path struct {
	Nodes  []int64
	Edges  []roadgraph.EdgeID
	Weight float64
}

type pqItem struct {
	node     int64
	priority float64
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].node < pq[j].node
}

func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x interface{}) {
	*pq = append(*pq, x.(*pqItem))
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[0 : n-1]
	return item
}

type predecessor struct {
	node int64
	edge roadgraph.EdgeID
}

func almostEqual(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= 1e-12*scale
}

// ShortestPath runs Dijkstra over the overlay weights. Equal-weight
// alternatives are settled deterministically: a node keeps the predecessor
// with the lowest id, and between parallel edges of the same predecessor the
// lowest Key, then the lowest EdgeID, wins.
func ShortestPath(ctx context.Context, g *roadgraph.Graph, overlay *Overlay, from, to int64) (Path, error) {
	if _, ok := g.Node(from); !ok {
		return Path{}, routeerr.Errorf(routeerr.UnresolvableEndpoint, routeerr.StageSolve, "shortest path", "unknown origin node %d", from)
	}
	if _, ok := g.Node(to); !ok {
		return Path{}, routeerr.Errorf(routeerr.UnresolvableEndpoint, routeerr.StageSolve, "shortest path", "unknown destination node %d", to)
	}
	if overlay == nil || overlay.Len() != g.EdgeCount() {
		return Path{}, routeerr.Errorf(routeerr.Internal, routeerr.StageSolve, "shortest path", "weight overlay does not match graph")
	}
	if from == to {
		return Path{Nodes: []int64{from}}, nil
	}

	dist := map[int64]float64{from: 0}
	pred := make(map[int64]predecessor)
	settled := make(map[int64]bool)

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &pqItem{node: from, priority: 0})

	processed := 0
	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		current := item.node
		if settled[current] || item.priority > dist[current] {
			continue
		}
		settled[current] = true
		if current == to {
			break
		}

		processed++
		if processed%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Path{}, routeerr.New(routeerr.Internal, routeerr.StageSolve, "shortest path", err)
			}
		}

		for _, eid := range g.OutEdges(current) {
			e := g.Edge(eid)
			if settled[e.To] {
				continue
			}
			tentative := dist[current] + overlay.Weight(eid)
			old, seen := dist[e.To]

			switch {
			case !seen || (tentative < old && !almostEqual(tentative, old)):
				dist[e.To] = tentative
				pred[e.To] = predecessor{node: current, edge: eid}
				heap.Push(pq, &pqItem{node: e.To, priority: tentative})
			case almostEqual(tentative, old) && preferred(g, current, eid, pred[e.To]):
				pred[e.To] = predecessor{node: current, edge: eid}
			}
		}
	}

	if !settled[to] {
		return Path{}, routeerr.Errorf(routeerr.NoPathFound, routeerr.StageSolve, "shortest path", "no path from %d to %d", from, to)
	}
	return reconstructPath(pred, from, to, dist[to]), nil
}

// preferred reports whether reaching a node through (node, edge) should
// replace the current equal-weight predecessor.
func preferred(g *roadgraph.Graph, node int64, edge roadgraph.EdgeID, cur predecessor) bool {
	if node != cur.node {
		return node < cur.node
	}
	a, b := g.Edge(edge), g.Edge(cur.edge)
	if a.Key != b.Key {
		return a.Key < b.Key
	}
	return edge < cur.edge
}

func reconstructPath(pred map[int64]predecessor, from, to int64, weight float64) Path {
	var (
		nodes []int64
		edges []roadgraph.EdgeID
	)
	for current := to; ; {
		nodes = append(nodes, current)
		if current == from {
			break
		}
		p := pred[current]
		edges = append(edges, p.edge)
		current = p.node
	}

	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return Path{Nodes: nodes, Edges: edges, Weight: weight}
}
