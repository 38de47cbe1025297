package routing

import (
	"math"

	"github.com/mohamedthameursassi/saferoute/roadgraph"
	"github.com/mohamedthameursassi/saferoute/routeerr"
)

const (
	// DefaultRiskWeightFactor scales risk into the same order as meters.
	DefaultRiskWeightFactor = 1000.0

	DefaultTolerance = 0.5
)

// Compose blends length and risk: (1-t)*length + t*risk*factor.
func Compose(length, risk, tolerance, factor float64) float64 {
	return (1-tolerance)*length + tolerance*(risk*factor)
}

// ValidateTolerance rejects values outside [0, 1].
func ValidateTolerance(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return routeerr.Errorf(routeerr.InvalidInput, routeerr.StageQuery, "validate tolerance", "risk tolerance %v outside [0, 1]", t)
	}
	return nil
}

func validateFactor(f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return routeerr.Errorf(routeerr.InvalidInput, routeerr.StageQuery, "validate factor", "risk weight factor %v must be finite and >= 0", f)
	}
	return nil
}

// Overlay holds one combined weight per edge for a single tolerance. It is
// private to whoever built it and never changes afterwards, so it can be
// shared between concurrent queries.
type Overlay struct {
	tolerance float64
	factor    float64
	weights   []float64
}

// NewOverlay computes the combined weight of every edge of g.
func NewOverlay(g *roadgraph.Graph, tolerance, factor float64) (*Overlay, error) {
	if err := ValidateTolerance(tolerance); err != nil {
		return nil, err
	}
	if err := validateFactor(factor); err != nil {
		return nil, err
	}

	edges := g.Edges()
	o := &Overlay{
		tolerance: tolerance,
		factor:    factor,
		weights:   make([]float64, len(edges)),
	}
	for _, e := range edges {
		o.weights[e.ID] = Compose(e.Length, e.Risk, tolerance, factor)
	}
	return o, nil
}

func (o *Overlay) Weight(id roadgraph.EdgeID) float64 { return o.weights[id] }

func (o *Overlay) Tolerance() float64 { return o.tolerance }

func (o *Overlay) Factor() float64 { return o.factor }

func (o *Overlay) Len() int { return len(o.weights) }
