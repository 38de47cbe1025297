// Package routing turns a risk-annotated road graph into routes: it blends
// length and risk into edge weights, snaps coordinates to nodes and runs a
// deterministic shortest-path search.
package routing

import (
	"context"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/mohamedthameursassi/saferoute/metrics"
	"github.com/mohamedthameursassi/saferoute/roadgraph"
	"github.com/mohamedthameursassi/saferoute/routeerr"
)

// DefaultOverlayCacheSize is the number of tolerances whose overlays are kept.
const DefaultOverlayCacheSize = 16

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Query struct {
	Origin      Coordinate
	Destination Coordinate
	Tolerance   float64
}

// Segment describes one edge of a route.
type Segment struct {
	Edge    roadgraph.EdgeID `json:"edge"`
	From    int64            `json:"from"`
	To      int64            `json:"to"`
	Name    string           `json:"name,omitempty"`
	LengthM float64          `json:"lengthM"`
	Risk    float64          `json:"risk"`
	Weight  float64          `json:"weight"`
}

// Route is the answer to a Query.
type Route struct {
	OriginNode      int64              `json:"originNode"`
	DestinationNode int64              `json:"destinationNode"`
	SnapDistanceM   [2]float64         `json:"snapDistanceM"`
	Nodes           []int64            `json:"nodes"`
	Edges           []roadgraph.EdgeID `json:"edges"`
	Segments        []Segment          `json:"segments"`
	Coordinates     []Coordinate       `json:"coordinates"`
	LengthM         float64            `json:"lengthM"`
	Risk            float64            `json:"risk"`
	Weight          float64            `json:"weight"`
	Tolerance       float64            `json:"tolerance"`
}

type Options struct {
	RiskWeightFactor float64
	// OverlayCacheSize <= 0 disables the overlay cache.
	OverlayCacheSize int
}

func DefaultOptions() Options {
	return Options{
		RiskWeightFactor: DefaultRiskWeightFactor,
		OverlayCacheSize: DefaultOverlayCacheSize,
	}
}

// Router answers route queries against one graph snapshot. It is safe for
// concurrent use; the graph must not be modified while the router is live.
type Router struct {
	g       *roadgraph.Graph
	locator *Locator
	factor  float64
	cache   *lru.Cache[uint64, *Overlay]
	logger  *zap.Logger
}

func NewRouter(g *roadgraph.Graph, opts Options, logger *zap.Logger) (*Router, error) {
	if g == nil {
		return nil, routeerr.Errorf(routeerr.Unavailable, routeerr.StageQuery, "new router", "no graph")
	}
	if err := validateFactor(opts.RiskWeightFactor); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Router{
		g:       g,
		locator: NewLocator(g),
		factor:  opts.RiskWeightFactor,
		logger:  logger,
	}
	if opts.OverlayCacheSize > 0 {
		cache, err := lru.New[uint64, *Overlay](opts.OverlayCacheSize)
		if err != nil {
			return nil, routeerr.New(routeerr.Internal, routeerr.StageQuery, "new router", err)
		}
		r.cache = cache
	}
	return r, nil
}

func (r *Router) Graph() *roadgraph.Graph { return r.g }

func (r *Router) Locator() *Locator { return r.locator }

func (r *Router) RiskWeightFactor() float64 { return r.factor }

func toleranceKey(t float64) uint64 {
	if t == 0 {
		t = 0 // folds -0 into +0
	}
	return math.Float64bits(t)
}

// Overlay returns the weight overlay for tolerance t, building and caching
// it on first use.
func (r *Router) Overlay(t float64) (*Overlay, error) {
	if err := ValidateTolerance(t); err != nil {
		return nil, err
	}
	key := toleranceKey(t)
	if r.cache != nil {
		if o, ok := r.cache.Get(key); ok {
			metrics.RecordOverlayCache(true)
			return o, nil
		}
		metrics.RecordOverlayCache(false)
	}

	o, err := NewOverlay(r.g, t, r.factor)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Add(key, o)
	}
	return o, nil
}

type snapped struct {
	origin, destination roadgraph.Node
	dist                [2]float64
}

func (r *Router) snap(origin, destination Coordinate) (snapped, error) {
	var s snapped
	var err error
	if s.origin, s.dist[0], err = r.locator.Nearest(origin.Lat, origin.Lon); err != nil {
		return s, err
	}
	if s.destination, s.dist[1], err = r.locator.Nearest(destination.Lat, destination.Lon); err != nil {
		return s, err
	}
	return s, nil
}

// Route snaps both endpoints to their nearest nodes and returns the
// minimum-weight path between them at the query's tolerance.
func (r *Router) Route(ctx context.Context, q Query) (*Route, error) {
	if err := ValidateTolerance(q.Tolerance); err != nil {
		return nil, err
	}
	s, err := r.snap(q.Origin, q.Destination)
	if err != nil {
		return nil, err
	}
	return r.solve(ctx, s, q.Tolerance)
}

// Compare routes the same pair of endpoints once per tolerance. Snapping
// happens once.
func (r *Router) Compare(ctx context.Context, origin, destination Coordinate, tolerances []float64) ([]*Route, error) {
	if len(tolerances) == 0 {
		return nil, routeerr.Errorf(routeerr.InvalidInput, routeerr.StageQuery, "compare", "no tolerances given")
	}
	for _, t := range tolerances {
		if err := ValidateTolerance(t); err != nil {
			return nil, err
		}
	}
	s, err := r.snap(origin, destination)
	if err != nil {
		return nil, err
	}

	routes := make([]*Route, 0, len(tolerances))
	for _, t := range tolerances {
		route, err := r.solve(ctx, s, t)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, nil
}

func (r *Router) solve(ctx context.Context, s snapped, tolerance float64) (*Route, error) {
	start := time.Now()
	overlay, err := r.Overlay(tolerance)
	if err != nil {
		return nil, err
	}
	path, err := ShortestPath(ctx, r.g, overlay, s.origin.ID, s.destination.ID)
	if err != nil {
		return nil, err
	}

	route := r.buildRoute(path, overlay)
	route.OriginNode = s.origin.ID
	route.DestinationNode = s.destination.ID
	route.SnapDistanceM = s.dist

	r.logger.Debug("route computed",
		zap.Int64("origin", s.origin.ID),
		zap.Int64("destination", s.destination.ID),
		zap.Float64("tolerance", tolerance),
		zap.Int("nodes", len(route.Nodes)),
		zap.Float64("length_m", route.LengthM),
		zap.Float64("risk", route.Risk),
		zap.Duration("elapsed", time.Since(start)),
	)
	return route, nil
}

func (r *Router) buildRoute(path Path, overlay *Overlay) *Route {
	route := &Route{
		Nodes:     path.Nodes,
		Edges:     path.Edges,
		Segments:  make([]Segment, 0, len(path.Edges)),
		Weight:    path.Weight,
		Tolerance: overlay.Tolerance(),
	}

	for _, eid := range path.Edges {
		e := r.g.Edge(eid)
		route.Segments = append(route.Segments, Segment{
			Edge:    eid,
			From:    e.From,
			To:      e.To,
			Name:    e.Name,
			LengthM: e.Length,
			Risk:    e.Risk,
			Weight:  overlay.Weight(eid),
		})
		route.LengthM += e.Length
		route.Risk += e.Risk

		for i, p := range e.Geometry {
			c := Coordinate{Lat: p.Lat(), Lon: p.Lon()}
			if i == 0 && len(route.Coordinates) > 0 && route.Coordinates[len(route.Coordinates)-1] == c {
				continue
			}
			route.Coordinates = append(route.Coordinates, c)
		}
	}

	if len(path.Edges) == 0 && len(path.Nodes) == 1 {
		n, _ := r.g.Node(path.Nodes[0])
		route.Coordinates = []Coordinate{{Lat: n.Lat, Lon: n.Lon}}
	}
	return route
}
