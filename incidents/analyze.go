package incidents

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// HourCount is the number of incidents that happened during one hour of
// the day.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// WeatherStats groups incidents reported under one weather condition.
type WeatherStats struct {
	Condition    string  `json:"condition"`
	Count        int     `json:"count"`
	MeanSeverity float64 `json:"meanSeverity"`
}

// PeriodCount is the number of incidents in a day or night period.
type PeriodCount struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
}

// Analysis breaks incidents down by time of day and conditions.
type Analysis struct {
	Incidents     int `json:"incidents"`
	WithTimestamp int `json:"withTimestamp"`

	// ByHour holds only hours with at least one incident, in hour order.
	ByHour []HourCount `json:"byHour"`
	// RiskiestHour is the hour with the most incidents, the earliest one on
	// a tie. Nil when no incident has a timestamp.
	RiskiestHour *int `json:"riskiestHour,omitempty"`

	// ByWeather is ordered by count, most frequent first, then by name.
	ByWeather []WeatherStats `json:"byWeather"`
	// ByDayNight is ordered by period name.
	ByDayNight []PeriodCount `json:"byDayNight"`
}

// Analyze computes the breakdowns over incs. Records without a timestamp,
// weather condition or day/night period are left out of the matching
// breakdown only.
func Analyze(incs []Incident) Analysis {
	a := Analysis{Incidents: len(incs)}

	var hours [24]int
	severities := make(map[string][]float64)
	periods := make(map[string]int)

	for _, inc := range incs {
		if inc.Timestamp != nil {
			hours[inc.Timestamp.Hour()]++
			a.WithTimestamp++
		}
		if inc.Weather != "" {
			severities[inc.Weather] = append(severities[inc.Weather], float64(NormalizeSeverity(inc.Severity)))
		}
		if inc.DayNight != "" {
			periods[inc.DayNight]++
		}
	}

	for h, n := range hours {
		if n == 0 {
			continue
		}
		a.ByHour = append(a.ByHour, HourCount{Hour: h, Count: n})
		if a.RiskiestHour == nil || n > hours[*a.RiskiestHour] {
			hour := h
			a.RiskiestHour = &hour
		}
	}

	for cond, sev := range severities {
		a.ByWeather = append(a.ByWeather, WeatherStats{
			Condition:    cond,
			Count:        len(sev),
			MeanSeverity: stat.Mean(sev, nil),
		})
	}
	sort.Slice(a.ByWeather, func(i, j int) bool {
		if a.ByWeather[i].Count != a.ByWeather[j].Count {
			return a.ByWeather[i].Count > a.ByWeather[j].Count
		}
		return a.ByWeather[i].Condition < a.ByWeather[j].Condition
	})

	for p, n := range periods {
		a.ByDayNight = append(a.ByDayNight, PeriodCount{Period: p, Count: n})
	}
	sort.Slice(a.ByDayNight, func(i, j int) bool {
		return a.ByDayNight[i].Period < a.ByDayNight[j].Period
	})

	return a
}
