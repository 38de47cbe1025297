package geodesy

import (
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
)

func TestHaversine(t *testing.T) {
	p := orb.Point{-73.57, 45.50}
	assert.Zero(t, Haversine(p, p))

	// one degree of arc, along the equator and along a meridian
	assert.InDelta(t, MetersPerDegree, Haversine(orb.Point{0, 0}, orb.Point{1, 0}), 1e-6)
	assert.InDelta(t, MetersPerDegree, Haversine(orb.Point{10, 20}, orb.Point{10, 21}), 1e-6)

	q := orb.Point{-73.55, 45.52}
	assert.Equal(t, Haversine(p, q), Haversine(q, p))
	assert.InDelta(t, 2715, Haversine(p, q), 5)
}

func TestHaversineMatchesOrbOnMeanRadius(t *testing.T) {
	pairs := [][2]orb.Point{
		{{-73.57, 45.50}, {-73.55, 45.52}},
		{{2.35, 48.85}, {-0.13, 51.51}},
		{{0, 0}, {179, 1}},
	}
	for _, pq := range pairs {
		// orb measures on the equatorial radius
		want := geo.DistanceHaversine(pq[0], pq[1]) * EarthRadiusMeters / orb.EarthRadius
		assert.InEpsilon(t, want, Haversine(pq[0], pq[1]), 1e-9)
	}
}

func TestLineLength(t *testing.T) {
	ls := orb.LineString{{0, 0}, {1, 0}, {1, 1}}
	assert.InDelta(t, 2*MetersPerDegree, LineLength(ls), 1e-6)
	assert.Zero(t, LineLength(orb.LineString{{3, 4}}))
	assert.Zero(t, LineLength(nil))
}

func TestInterpolate(t *testing.T) {
	ls := orb.LineString{{0, 0}, {2, 0}}

	mid := Midpoint(ls)
	assert.InDelta(t, 1, mid.Lon(), 1e-9)
	assert.InDelta(t, 0, mid.Lat(), 1e-9)

	assert.Equal(t, ls[0], Interpolate(ls, -1))
	assert.Equal(t, ls[1], Interpolate(ls, 2))
	assert.Equal(t, orb.Point{}, Interpolate(nil, 0.5))
	assert.Equal(t, orb.Point{5, 5}, Interpolate(orb.LineString{{5, 5}}, 0.5))
	assert.Equal(t, orb.Point{5, 5}, Interpolate(orb.LineString{{5, 5}, {5, 5}}, 0.5))

	// the halfway point of a bent line sits at the corner
	bent := orb.LineString{{0, 0}, {1, 0}, {1, 1}}
	corner := Midpoint(bent)
	assert.InDelta(t, 1, corner.Lon(), 1e-6)
	assert.InDelta(t, 0, corner.Lat(), 1e-6)
}

func TestBoundAroundContainsDisc(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cases := []struct {
		name   string
		center orb.Point
		radius float64
		spread float64
	}{
		{"mid latitude", orb.Point{-73.57, 45.5}, 500, 0.01},
		{"equator", orb.Point{0, 0}, 100, 0.002},
		{"near pole", orb.Point{30, 89.9995}, 1000, 0.05},
		{"high latitude", orb.Point{20, 80}, 5000, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := BoundAround(tc.center, tc.radius)
			inside := 0
			for i := 0; i < 5000; i++ {
				lat := math.Max(-90, math.Min(90, tc.center.Lat()+(rng.Float64()*2-1)*tc.spread))
				lon := tc.center.Lon() + (rng.Float64()*2-1)*tc.spread*20
				if lon < -180 || lon > 180 {
					continue
				}
				p := orb.Point{lon, lat}
				if Haversine(tc.center, p) <= tc.radius {
					inside++
					assert.True(t, b.Contains(p), "point %v at %.3fm escapes %v", p, Haversine(tc.center, p), b)
				}
			}
			assert.Greater(t, inside, 0)
		})
	}
}

func TestBoundAroundPole(t *testing.T) {
	b := BoundAround(orb.Point{30, 89.9995}, 1000)
	assert.Less(t, b.Min.Lon(), -179.9)
	assert.Greater(t, b.Max.Lon(), 179.9)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(orb.Point{-180, -90}))
	assert.True(t, Valid(orb.Point{180, 90}))
	assert.False(t, Valid(orb.Point{0, 90.5}))
	assert.False(t, Valid(orb.Point{-181, 0}))
	assert.False(t, Valid(orb.Point{math.NaN(), 0}))
	assert.False(t, Valid(orb.Point{0, math.Inf(1)}))
}
