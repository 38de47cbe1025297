// Package risk annotates road segments with the severity of nearby historical
// incidents.
package risk

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohamedthameursassi/saferoute/geodesy"
	"github.com/mohamedthameursassi/saferoute/incidents"
	"github.com/mohamedthameursassi/saferoute/metrics"
	"github.com/mohamedthameursassi/saferoute/roadgraph"
	"github.com/mohamedthameursassi/saferoute/routeerr"
)

// DefaultRadius is the incident search radius in meters.
const DefaultRadius = 100.0

// MinSampledLength is the length in meters up to which an edge is measured
// at its midpoint only, whatever the sample spacing.
const MinSampledLength = 50.0

// cancellation is checked once per this many edges
const ctxCheckEvery = 256

type Options struct {
	// Radius in meters around an edge's reference point(s).
	Radius float64
	// SampleSpacing > 0 samples edges longer than both it and
	// MinSampledLength at several points in addition to the midpoint.
	SampleSpacing float64
	// Workers <= 0 means GOMAXPROCS.
	Workers int
}

func DefaultOptions() Options {
	return Options{Radius: DefaultRadius}
}

// Validate rejects negative or non-finite parameters.
func (o Options) Validate() error {
	if math.IsNaN(o.Radius) || math.IsInf(o.Radius, 0) || o.Radius < 0 {
		return routeerr.Errorf(routeerr.InvalidInput, routeerr.StageAggregate, "validate options", "invalid radius %v", o.Radius)
	}
	if math.IsNaN(o.SampleSpacing) || math.IsInf(o.SampleSpacing, 0) || o.SampleSpacing < 0 {
		return routeerr.Errorf(routeerr.InvalidInput, routeerr.StageAggregate, "validate options", "invalid sample spacing %v", o.SampleSpacing)
	}
	return nil
}

// Summary describes one annotation pass.
type Summary struct {
	Edges      int           `json:"edges"`
	RiskyEdges int           `json:"riskyEdges"`
	TotalRisk  float64       `json:"totalRisk"`
	MaxRisk    float64       `json:"maxRisk"`
	Incidents  int           `json:"incidents"`
	Duration   time.Duration `json:"duration"`
}

type Aggregator struct {
	opts   Options
	logger *zap.Logger
}

func NewAggregator(opts Options, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{opts: opts, logger: logger}
}

func (a *Aggregator) Options() Options { return a.opts }

// samplePoints returns the reference points of an edge: the midpoint, plus
// evenly spaced points along the geometry when sampling applies. The
// midpoint is always among them, so sampling never scores an edge below
// the midpoint model.
func (a *Aggregator) samplePoints(e roadgraph.Edge) []orb.Point {
	mid := geodesy.Midpoint(e.Geometry)
	spacing := a.opts.SampleSpacing
	if spacing <= 0 || e.Length <= math.Max(spacing, MinSampledLength) {
		return []orb.Point{mid}
	}

	steps := int(math.Ceil(e.Length / spacing))
	pts := make([]orb.Point, 0, steps+2)
	for i := 0; i <= steps; i++ {
		pts = append(pts, geodesy.Interpolate(e.Geometry, float64(i)/float64(steps)))
	}
	if steps%2 == 1 {
		pts = append(pts, mid)
	}
	return pts
}

// EdgeRisk sums the severity of every incident within the radius of the
// edge's reference points. An incident counts once per edge.
func (a *Aggregator) EdgeRisk(e roadgraph.Edge, idx *incidents.Index) float64 {
	pts := a.samplePoints(e)
	if len(pts) == 1 {
		total := 0
		for _, pos := range idx.Near(pts[0], a.opts.Radius) {
			total += incidents.NormalizeSeverity(idx.At(pos).Severity)
		}
		return float64(total)
	}

	seen := make(map[int]struct{})
	total := 0
	for _, p := range pts {
		for _, pos := range idx.Near(p, a.opts.Radius) {
			if _, ok := seen[pos]; ok {
				continue
			}
			seen[pos] = struct{}{}
			total += incidents.NormalizeSeverity(idx.At(pos).Severity)
		}
	}
	return float64(total)
}

func (a *Aggregator) workers(edges int) int {
	w := a.opts.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w > edges {
		w = edges
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Annotate overwrites the risk of every edge of g. Edges are split into
// contiguous chunks handled by separate goroutines; each goroutine writes
// only its own edges. The call blocks until every chunk is done and returns
// the first error, including context cancellation.
func (a *Aggregator) Annotate(ctx context.Context, g *roadgraph.Graph, idx *incidents.Index) (Summary, error) {
	if err := a.opts.Validate(); err != nil {
		return Summary{}, err
	}
	if idx == nil {
		idx = &incidents.Index{}
	}

	start := time.Now()
	edges := g.Edges()
	workers := a.workers(len(edges))
	chunk := (len(edges) + workers - 1) / workers

	a.logger.Info("annotating edges",
		zap.Int("edges", len(edges)),
		zap.Int("incidents", idx.Len()),
		zap.Int("workers", workers),
		zap.Float64("radius_m", a.opts.Radius),
		zap.Float64("sample_spacing_m", a.opts.SampleSpacing),
	)

	eg, ctx := errgroup.WithContext(ctx)
	for lo := 0; lo < len(edges); lo += chunk {
		hi := lo + chunk
		if hi > len(edges) {
			hi = len(edges)
		}
		part := edges[lo:hi]
		eg.Go(func() error {
			for i, e := range part {
				if i%ctxCheckEvery == 0 {
					if err := ctx.Err(); err != nil {
						return routeerr.New(routeerr.Internal, routeerr.StageAggregate, "annotate", err)
					}
				}
				if err := g.SetRisk(e.ID, a.EdgeRisk(e, idx)); err != nil {
					return fmt.Errorf("edge %d: %w", e.ID, err)
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		a.logger.Error("annotation failed", zap.Error(err))
		return Summary{}, err
	}

	s := Summary{Edges: g.EdgeCount(), Incidents: idx.Len()}
	for _, e := range g.Edges() {
		if e.Risk > 0 {
			s.RiskyEdges++
		}
		s.TotalRisk += e.Risk
		s.MaxRisk = math.Max(s.MaxRisk, e.Risk)
	}
	s.Duration = time.Since(start)

	metrics.RecordAggregation(s.Duration, s.Edges, s.RiskyEdges)
	a.logger.Info("annotation complete",
		zap.Int("edges", s.Edges),
		zap.Int("risky_edges", s.RiskyEdges),
		zap.Float64("total_risk", s.TotalRisk),
		zap.Float64("max_risk", s.MaxRisk),
		zap.Duration("duration", s.Duration),
	)
	return s, nil
}
