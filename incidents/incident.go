// Package incidents loads historical incident records and indexes them for
// radius lookups.
package incidents

import (
	"time"

	"github.com/paulmach/orb"
)

// DefaultSeverity is used when a record has no usable severity.
const DefaultSeverity = 1

// Incident is a read-only incident record.
type Incident struct {
	ID        string     `json:"id,omitempty"`
	Lat       float64    `json:"lat"`
	Lon       float64    `json:"lon"`
	Severity  int        `json:"severity"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	// Weather is the reported weather condition, e.g. "Light Rain".
	Weather string `json:"weather,omitempty"`
	// DayNight is "Day" or "Night" by sunrise and sunset, when known.
	DayNight string `json:"dayNight,omitempty"`
}

// Point returns the incident location as an orb [lon, lat] point.
func (i Incident) Point() orb.Point {
	return orb.Point{i.Lon, i.Lat}
}

// NormalizeSeverity maps missing or non-positive severities to
// DefaultSeverity.
func NormalizeSeverity(s int) int {
	if s < DefaultSeverity {
		return DefaultSeverity
	}
	return s
}

// TotalSeverity sums the severities of incs.
func TotalSeverity(incs []Incident) int {
	total := 0
	for _, inc := range incs {
		total += NormalizeSeverity(inc.Severity)
	}
	return total
}
