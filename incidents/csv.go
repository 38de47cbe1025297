package incidents

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mohamedthameursassi/saferoute/geodesy"
	"github.com/mohamedthameursassi/saferoute/routeerr"
)

// Column names of the canonical incident CSV.
const (
	ColumnID        = "ID"
	ColumnLat       = "Start_Lat"
	ColumnLon       = "Start_Lng"
	ColumnSeverity  = "Severity"
	ColumnTimestamp = "Weather_Timestamp"
	ColumnWeather   = "Weather_Condition"
	ColumnDayNight  = "Sunrise_Sunset"
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// LoadOptions restricts which records are kept. When a window is set,
// records without a timestamp are dropped.
type LoadOptions struct {
	Since *time.Time
	Until *time.Time
}

// LoadStats counts what happened to the input rows.
type LoadStats struct {
	Rows              int `json:"rows"`
	Loaded            int `json:"loaded"`
	SkippedNoLocation int `json:"skippedNoLocation"`
	OutsideWindow     int `json:"outsideWindow"`
	DefaultedSeverity int `json:"defaultedSeverity"`
}

func headerIndex(header []string) map[string]int {
	h := make(map[string]int, len(header))
	for i, name := range header {
		h[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	return h
}

func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// parseSeverity returns the severity and whether it had to be defaulted.
func parseSeverity(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultSeverity, true
	}
	if v, err := strconv.Atoi(s); err == nil {
		if v < DefaultSeverity {
			return DefaultSeverity, true
		}
		return v, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < DefaultSeverity || f != math.Trunc(f) || f > math.MaxInt32 {
		return DefaultSeverity, true
	}
	return int(f), false
}

func (o LoadOptions) windowed() bool {
	return o.Since != nil || o.Until != nil
}

func (o LoadOptions) keep(ts *time.Time) bool {
	if !o.windowed() {
		return true
	}
	if ts == nil {
		return false
	}
	if o.Since != nil && ts.Before(*o.Since) {
		return false
	}
	if o.Until != nil && ts.After(*o.Until) {
		return false
	}
	return true
}

// Load reads incidents from the canonical CSV. Rows without a location are
// skipped; a missing or bad severity falls back to DefaultSeverity. Neither
// is an error.
func Load(r io.Reader, opts LoadOptions) ([]Incident, LoadStats, error) {
	var stats LoadStats

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, stats, routeerr.New(routeerr.InvalidInput, routeerr.StageLoadIncidents, "read header", err)
	}
	h := headerIndex(header)
	for _, col := range []string{ColumnLat, ColumnLon} {
		if _, ok := h[col]; !ok {
			return nil, stats, routeerr.Errorf(routeerr.InvalidInput, routeerr.StageLoadIncidents, "read header", "missing column %q", col)
		}
	}

	var out []Incident
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, routeerr.New(routeerr.InvalidInput, routeerr.StageLoadIncidents, fmt.Sprintf("read row %d", stats.Rows+1), err)
		}
		stats.Rows++

		get := func(k string) string {
			i, ok := h[k]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		lat, errLat := strconv.ParseFloat(get(ColumnLat), 64)
		lon, errLon := strconv.ParseFloat(get(ColumnLon), 64)
		inc := Incident{ID: get(ColumnID), Lat: lat, Lon: lon}
		if errLat != nil || errLon != nil || !geodesy.Valid(inc.Point()) {
			stats.SkippedNoLocation++
			continue
		}

		inc.Timestamp = parseTimestamp(get(ColumnTimestamp))
		if !opts.keep(inc.Timestamp) {
			stats.OutsideWindow++
			continue
		}

		sev, defaulted := parseSeverity(get(ColumnSeverity))
		if defaulted {
			stats.DefaultedSeverity++
		}
		inc.Severity = sev
		inc.Weather = get(ColumnWeather)
		inc.DayNight = get(ColumnDayNight)

		out = append(out, inc)
		stats.Loaded++
	}

	return out, stats, nil
}

// LoadFile opens path and parses it with Load.
func LoadFile(path string, opts LoadOptions) ([]Incident, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, routeerr.New(routeerr.Unavailable, routeerr.StageLoadIncidents, "open incidents", err)
	}
	defer f.Close()

	return Load(bufio.NewReader(f), opts)
}
