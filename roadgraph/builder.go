package roadgraph

import (
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/mohamedthameursassi/saferoute/geodesy"
	"github.com/mohamedthameursassi/saferoute/routeerr"
)

// EdgeSpec describes an edge to add to a Builder.
//
// A geometry with fewer than two points is replaced by the straight line
// between the endpoints. When HasLength is false the length is the haversine
// length of the geometry.
type EdgeSpec struct {
	From      int64
	To        int64
	Key       int
	Geometry  orb.LineString
	Length    float64
	HasLength bool
	Risk      float64
	Name      string
}

type edgeKey struct {
	from, to int64
	key      int
}

// Builder accumulates nodes and edges and validates them into a Graph.
type Builder struct {
	nodes map[int64]Node
	specs []EdgeSpec
	keys  map[edgeKey]struct{}
}

func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[int64]Node),
		keys:  make(map[edgeKey]struct{}),
	}
}

func malformed(format string, args ...interface{}) error {
	return routeerr.Errorf(routeerr.MalformedTopology, routeerr.StageLoadTopology, "build graph", format, args...)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// AddNode registers a node. Duplicate ids and invalid coordinates are
// rejected.
func (b *Builder) AddNode(n Node) error {
	if _, dup := b.nodes[n.ID]; dup {
		return malformed("duplicate node %d", n.ID)
	}
	if !geodesy.Valid(n.Point()) {
		return malformed("node %d has invalid coordinates (%v, %v)", n.ID, n.Lat, n.Lon)
	}
	b.nodes[n.ID] = n
	return nil
}

// AddEdge registers an edge. Endpoint existence is checked by Build so that
// nodes and edges may be added in any order.
func (b *Builder) AddEdge(s EdgeSpec) error {
	k := edgeKey{s.From, s.To, s.Key}
	if _, dup := b.keys[k]; dup {
		return malformed("duplicate edge %d->%d key %d", s.From, s.To, s.Key)
	}
	if s.HasLength && (!finite(s.Length) || s.Length < 0) {
		return malformed("edge %d->%d: invalid length %v", s.From, s.To, s.Length)
	}
	if !finite(s.Risk) || s.Risk < 0 {
		return malformed("edge %d->%d: invalid risk %v", s.From, s.To, s.Risk)
	}
	for _, p := range s.Geometry {
		if !geodesy.Valid(p) {
			return malformed("edge %d->%d: invalid geometry point %v", s.From, s.To, p)
		}
	}
	b.keys[k] = struct{}{}
	b.specs = append(b.specs, s)
	return nil
}

// Build validates every edge against the node set and freezes the topology.
// Edge ids follow insertion order.
func (b *Builder) Build() (*Graph, error) {
	g := &Graph{
		nodes: make(map[int64]Node, len(b.nodes)),
		order: make([]int64, 0, len(b.nodes)),
		edges: make([]Edge, 0, len(b.specs)),
		out:   make(map[int64][]EdgeID),
	}

	for id, n := range b.nodes {
		g.nodes[id] = n
		g.order = append(g.order, id)
	}
	sort.Slice(g.order, func(i, j int) bool { return g.order[i] < g.order[j] })

	for i, s := range b.specs {
		from, ok := b.nodes[s.From]
		if !ok {
			return nil, malformed("edge %d->%d references missing node %d", s.From, s.To, s.From)
		}
		to, ok := b.nodes[s.To]
		if !ok {
			return nil, malformed("edge %d->%d references missing node %d", s.From, s.To, s.To)
		}

		geom := s.Geometry
		if len(geom) < 2 {
			geom = orb.LineString{from.Point(), to.Point()}
		} else {
			geom = append(orb.LineString(nil), geom...)
		}

		length := s.Length
		if !s.HasLength {
			length = geodesy.LineLength(geom)
		}

		id := EdgeID(i)
		g.edges = append(g.edges, Edge{
			ID:       id,
			From:     s.From,
			To:       s.To,
			Key:      s.Key,
			Geometry: geom,
			Length:   length,
			Risk:     s.Risk,
			Name:     s.Name,
		})
		g.out[s.From] = append(g.out[s.From], id)
	}

	for _, ids := range g.out {
		sort.Slice(ids, func(i, j int) bool {
			a, c := g.edges[ids[i]], g.edges[ids[j]]
			if a.To != c.To {
				return a.To < c.To
			}
			if a.Key != c.Key {
				return a.Key < c.Key
			}
			return a.ID < c.ID
		})
	}

	for i, id := range g.order {
		p := g.nodes[id].Point()
		if i == 0 {
			g.bound = p.Bound()
			continue
		}
		g.bound = g.bound.Extend(p)
	}

	return g, nil
}
