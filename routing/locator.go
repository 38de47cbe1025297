package routing

import (
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/mohamedthameursassi/saferoute/geodesy"
	"github.com/mohamedthameursassi/saferoute/roadgraph"
	"github.com/mohamedthameursassi/saferoute/routeerr"
)

// nodePoint is a node projected onto the unit sphere. Squared chord length
// grows with great-circle distance, so the k-d tree ranks nodes the same way
// haversine would.
type nodePoint struct {
	id  int64
	xyz [3]float64
}

func toUnitSphere(lat, lon float64) [3]float64 {
	phi := lat * math.Pi / 180
	lambda := lon * math.Pi / 180
	return [3]float64{
		math.Cos(phi) * math.Cos(lambda),
		math.Cos(phi) * math.Sin(lambda),
		math.Sin(phi),
	}
}

func (p nodePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(nodePoint)
	return p.xyz[d] - q.xyz[d]
}

func (p nodePoint) Dims() int { return 3 }

func (p nodePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(nodePoint)
	var sum float64
	for i := range p.xyz {
		d := p.xyz[i] - q.xyz[i]
		sum += d * d
	}
	return sum
}

type nodePoints []nodePoint

func (p nodePoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p nodePoints) Len() int                              { return len(p) }
func (p nodePoints) Pivot(d kdtree.Dim) int                { return nodePlane{Dim: d, nodePoints: p}.Pivot() }
func (p nodePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

type nodePlane struct {
	kdtree.Dim
	nodePoints
}

func (p nodePlane) Less(i, j int) bool {
	return p.nodePoints[i].xyz[p.Dim] < p.nodePoints[j].xyz[p.Dim]
}
func (p nodePlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p nodePlane) Slice(start, end int) kdtree.SortSlicer {
	return nodePlane{Dim: p.Dim, nodePoints: p.nodePoints[start:end]}
}
func (p nodePlane) Swap(i, j int) {
	p.nodePoints[i], p.nodePoints[j] = p.nodePoints[j], p.nodePoints[i]
}

// Locator snaps coordinates to the nearest graph node.
type Locator struct {
	g    *roadgraph.Graph
	tree *kdtree.Tree
}

func NewLocator(g *roadgraph.Graph) *Locator {
	l := &Locator{g: g}
	if g.NodeCount() == 0 {
		return l
	}
	nodes := g.Nodes()
	pts := make(nodePoints, len(nodes))
	for i, n := range nodes {
		pts[i] = nodePoint{id: n.ID, xyz: toUnitSphere(n.Lat, n.Lon)}
	}
	l.tree = kdtree.New(pts, true)
	return l
}

// Nearest returns the node closest to (lat, lon) and its haversine distance
// in meters. There is no distance cutoff: a point far outside the network
// still snaps to the closest node. Equidistant nodes resolve to the lowest id.
func (l *Locator) Nearest(lat, lon float64) (roadgraph.Node, float64, error) {
	q := orb.Point{lon, lat}
	if !geodesy.Valid(q) {
		return roadgraph.Node{}, 0, routeerr.Errorf(routeerr.UnresolvableEndpoint, routeerr.StageSnap, "nearest node", "invalid coordinate (%v, %v)", lat, lon)
	}
	if l.tree == nil {
		return roadgraph.Node{}, 0, routeerr.Errorf(routeerr.UnresolvableEndpoint, routeerr.StageSnap, "nearest node", "graph has no nodes")
	}

	target := nodePoint{xyz: toUnitSphere(lat, lon)}
	best, bestDist := l.tree.Nearest(target)
	if best == nil {
		return roadgraph.Node{}, 0, routeerr.Errorf(routeerr.UnresolvableEndpoint, routeerr.StageSnap, "nearest node", "no node found")
	}

	// Collect everything at (numerically) the same distance and settle ties
	// on haversine distance, then node id.
	keeper := kdtree.NewDistKeeper(bestDist*(1+1e-9) + 1e-18)
	l.tree.NearestSet(keeper, target)

	var (
		found  bool
		chosen roadgraph.Node
		meters float64
	)
	for _, cd := range keeper.Heap {
		if cd.Comparable == nil {
			continue
		}
		n, ok := l.g.Node(cd.Comparable.(nodePoint).id)
		if !ok {
			continue
		}
		d := geodesy.Haversine(q, n.Point())
		if !found || d < meters || (d == meters && n.ID < chosen.ID) {
			found, chosen, meters = true, n, d
		}
	}
	if !found {
		n, _ := l.g.Node(best.(nodePoint).id)
		return n, geodesy.Haversine(q, n.Point()), nil
	}
	return chosen, meters, nil
}

// NearestBrute is the linear-scan equivalent of Nearest.
func (l *Locator) NearestBrute(lat, lon float64) (roadgraph.Node, float64, bool) {
	q := orb.Point{lon, lat}
	var (
		found  bool
		chosen roadgraph.Node
		meters float64
	)
	for _, n := range l.g.Nodes() {
		d := geodesy.Haversine(q, n.Point())
		if !found || d < meters {
			found, chosen, meters = true, n, d
		}
	}
	return chosen, meters, found
}
