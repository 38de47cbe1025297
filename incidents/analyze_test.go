package incidents

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour int) *time.Time {
	t := time.Date(2021, 3, 1, hour, 15, 0, 0, time.UTC)
	return &t
}

func intPtr(v int) *int { return &v }

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name string
		incs []Incident
		want Analysis
	}{
		{
			name: "empty",
			incs: nil,
			want: Analysis{},
		},
		{
			name: "no timestamps",
			incs: []Incident{
				{Severity: 2, Weather: "Fair"},
				{Severity: 0, Weather: "Fair", DayNight: "Night"},
			},
			want: Analysis{
				Incidents:  2,
				ByWeather:  []WeatherStats{{Condition: "Fair", Count: 2, MeanSeverity: 1.5}},
				ByDayNight: []PeriodCount{{Period: "Night", Count: 1}},
			},
		},
		{
			name: "full breakdown",
			incs: []Incident{
				{Severity: 2, Timestamp: at(8), Weather: "Light Rain", DayNight: "Day"},
				{Severity: 4, Timestamp: at(8), Weather: "Light Rain", DayNight: "Day"},
				{Severity: 3, Timestamp: at(17), Weather: "Fair", DayNight: "Day"},
				{Severity: 1, Timestamp: at(17), Weather: "Cloudy", DayNight: "Night"},
				{Severity: 2, Timestamp: at(23), DayNight: "Night"},
				{Severity: 2, Weather: "Fair"},
			},
			want: Analysis{
				Incidents:     6,
				WithTimestamp: 5,
				ByHour: []HourCount{
					{Hour: 8, Count: 2},
					{Hour: 17, Count: 2},
					{Hour: 23, Count: 1},
				},
				// 8h and 17h tie; the earlier hour wins
				RiskiestHour: intPtr(8),
				ByWeather: []WeatherStats{
					{Condition: "Fair", Count: 2, MeanSeverity: 2.5},
					{Condition: "Light Rain", Count: 2, MeanSeverity: 3},
					{Condition: "Cloudy", Count: 1, MeanSeverity: 1},
				},
				ByDayNight: []PeriodCount{
					{Period: "Day", Count: 3},
					{Period: "Night", Count: 2},
				},
			},
		},
		{
			name: "single peak",
			incs: []Incident{
				{Severity: 1, Timestamp: at(0)},
				{Severity: 1, Timestamp: at(18)},
				{Severity: 1, Timestamp: at(18)},
			},
			want: Analysis{
				Incidents:     3,
				WithTimestamp: 3,
				ByHour:        []HourCount{{Hour: 0, Count: 1}, {Hour: 18, Count: 2}},
				RiskiestHour:  intPtr(18),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Analyze(tt.incs))
		})
	}
}

func TestAnalyzeLoaded(t *testing.T) {
	doc := "ID,Severity,Start_Lat,Start_Lng,Weather_Timestamp,Weather_Condition,Sunrise_Sunset\n" +
		"A-1,3,45.50,-73.56,2021-03-01 08:15:00,Snow,Day\n" +
		"A-2,2,45.51,-73.57,2021-03-02 08:53:00, Snow ,Day\n" +
		"A-3,1,45.52,-73.58,2021-03-03 19:05:00,Clear,Night\n"

	incs, _, err := Load(strings.NewReader(doc), LoadOptions{})
	require.NoError(t, err)
	require.Len(t, incs, 3)
	assert.Equal(t, "Snow", incs[1].Weather)
	assert.Equal(t, "Night", incs[2].DayNight)

	a := Analyze(incs)
	require.NotNil(t, a.RiskiestHour)
	assert.Equal(t, 8, *a.RiskiestHour)
	assert.Equal(t, WeatherStats{Condition: "Snow", Count: 2, MeanSeverity: 2.5}, a.ByWeather[0])
	assert.Equal(t, []PeriodCount{{Period: "Day", Count: 2}, {Period: "Night", Count: 1}}, a.ByDayNight)
}
