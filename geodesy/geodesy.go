// Package geodesy holds the single distance model used across the engine.
//
// All distances are haversine great-circle distances on a sphere of radius
// EarthRadiusMeters. Angular extents are converted with MetersPerDegree, which
// is derived from the same radius so that incident lookups, edge lengths and
// node snapping always agree.
package geodesy

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	// EarthRadiusMeters is the mean earth radius.
	EarthRadiusMeters = 6371000.0

	// MetersPerDegree is the length of one degree of arc on the sphere,
	// EarthRadiusMeters * pi / 180 = 111194.93 m.
	MetersPerDegree = EarthRadiusMeters * math.Pi / 180
)

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func toDegrees(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Haversine returns the great-circle distance in meters between two
// [lon, lat] points.
func Haversine(p1, p2 orb.Point) float64 {
	phi1 := toRadians(p1.Lat())
	phi2 := toRadians(p2.Lat())
	deltaPhi := toRadians(p2.Lat() - p1.Lat())
	deltaLambda := toRadians(p2.Lon() - p1.Lon())

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// LineLength is the sum of the haversine lengths of the segments of ls.
func LineLength(ls orb.LineString) float64 {
	total := 0.0
	for i := 1; i < len(ls); i++ {
		total += Haversine(ls[i-1], ls[i])
	}
	return total
}

// Interpolate returns the point located at fraction f (clamped to [0,1]) of
// the haversine length of ls. Inside a segment the position is interpolated
// linearly in lon/lat, which is exact enough at road-segment scale.
func Interpolate(ls orb.LineString, f float64) orb.Point {
	switch len(ls) {
	case 0:
		return orb.Point{}
	case 1:
		return ls[0]
	}
	if f <= 0 {
		return ls[0]
	}
	if f >= 1 {
		return ls[len(ls)-1]
	}

	total := LineLength(ls)
	if total == 0 {
		return ls[0]
	}

	target := total * f
	walked := 0.0
	for i := 1; i < len(ls); i++ {
		seg := Haversine(ls[i-1], ls[i])
		if seg > 0 && walked+seg >= target {
			t := (target - walked) / seg
			return orb.Point{
				ls[i-1].Lon() + (ls[i].Lon()-ls[i-1].Lon())*t,
				ls[i-1].Lat() + (ls[i].Lat()-ls[i-1].Lat())*t,
			}
		}
		walked += seg
	}
	return ls[len(ls)-1]
}

// Midpoint is the point halfway along ls.
func Midpoint(ls orb.LineString) orb.Point {
	return Interpolate(ls, 0.5)
}

// BoundAround returns a lon/lat box that contains every point whose
// haversine distance to center is at most radius meters. Boxes that would
// cross a pole or span more than a hemisphere of longitude widen to the full
// longitude range.
func BoundAround(center orb.Point, radius float64) orb.Bound {
	angular := radius / EarthRadiusMeters
	dLat := toDegrees(angular)

	minLat := center.Lat() - dLat
	maxLat := center.Lat() + dLat
	minLon, maxLon := -180.0, 180.0

	if minLat > -90 && maxLat < 90 {
		s := math.Sin(angular) / math.Cos(toRadians(center.Lat()))
		if s < 1 {
			dLon := toDegrees(math.Asin(s))
			minLon = center.Lon() - dLon
			maxLon = center.Lon() + dLon
		}
	}

	// Pad by a hair so points sitting exactly on the radius survive the
	// box test before the exact distance filter.
	const pad = 1e-9
	return orb.Bound{
		Min: orb.Point{minLon - pad, math.Max(minLat, -90) - pad},
		Max: orb.Point{maxLon + pad, math.Min(maxLat, 90) + pad},
	}
}

// Valid reports whether p holds finite coordinates within lon/lat range.
func Valid(p orb.Point) bool {
	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
