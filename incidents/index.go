package incidents

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"

	"github.com/mohamedthameursassi/saferoute/geodesy"
)

// entry is what the quadtree stores: a position into Index.items.
type entry struct {
	pos int
	pt  orb.Point
}

func (e entry) Point() orb.Point { return e.pt }

// Index answers "all incidents within R meters of P" through a quadtree over
// incident locations. The quadtree narrows candidates to the box returned by
// geodesy.BoundAround; the exact haversine test then decides.
type Index struct {
	items []Incident
	tree  *quadtree.Quadtree
	bound orb.Bound
}

// NewIndex copies incs into a new index.
func NewIndex(incs []Incident) (*Index, error) {
	idx := &Index{items: append([]Incident(nil), incs...)}
	if len(idx.items) == 0 {
		return idx, nil
	}

	for i, inc := range idx.items {
		if !geodesy.Valid(inc.Point()) {
			return nil, fmt.Errorf("incident %d has invalid location (%v, %v)", i, inc.Lat, inc.Lon)
		}
		if i == 0 {
			idx.bound = inc.Point().Bound()
			continue
		}
		idx.bound = idx.bound.Extend(inc.Point())
	}

	idx.tree = quadtree.New(idx.bound.Pad(1e-6))
	for i, inc := range idx.items {
		if err := idx.tree.Add(entry{pos: i, pt: inc.Point()}); err != nil {
			return nil, fmt.Errorf("index incident %d: %w", i, err)
		}
	}
	return idx, nil
}

func (x *Index) Len() int { return len(x.items) }

// Bound is the box around all indexed incidents.
func (x *Index) Bound() orb.Bound { return x.bound }

// At returns the incident stored at position pos.
func (x *Index) At(pos int) Incident { return x.items[pos] }

// Near returns the positions of incidents within radius meters of p, in
// ascending order.
func (x *Index) Near(p orb.Point, radius float64) []int {
	if x == nil || x.tree == nil || radius < 0 {
		return nil
	}

	candidates := x.tree.InBound(nil, geodesy.BoundAround(p, radius))
	var out []int
	for _, c := range candidates {
		e := c.(entry)
		if geodesy.Haversine(p, e.pt) <= radius {
			out = append(out, e.pos)
		}
	}
	sort.Ints(out)
	return out
}

// Within returns the incidents within radius meters of p.
func (x *Index) Within(p orb.Point, radius float64) []Incident {
	positions := x.Near(p, radius)
	if len(positions) == 0 {
		return nil
	}
	out := make([]Incident, len(positions))
	for i, pos := range positions {
		out[i] = x.items[pos]
	}
	return out
}

// WithinBrute is the linear-scan equivalent of Within.
func (x *Index) WithinBrute(p orb.Point, radius float64) []Incident {
	if x == nil {
		return nil
	}
	var out []Incident
	for _, inc := range x.items {
		if geodesy.Haversine(p, inc.Point()) <= radius {
			out = append(out, inc)
		}
	}
	return out
}
