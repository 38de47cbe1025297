package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedthameursassi/saferoute/config"
	"github.com/mohamedthameursassi/saferoute/routeerr"
	"github.com/mohamedthameursassi/saferoute/routing"
)

func TestParseCoordinate(t *testing.T) {
	c, err := parseCoordinate("45.5017, -73.5673")
	require.NoError(t, err)
	assert.Equal(t, routing.Coordinate{Lat: 45.5017, Lon: -73.5673}, c)

	for _, bad := range []string{"", "45.5", "45.5,-73.5,0", "north,-73.5", "45.5,west"} {
		_, err := parseCoordinate(bad)
		assert.ErrorIs(t, err, routeerr.ErrInvalidInput, bad)
	}
}

func TestParseTime(t *testing.T) {
	ts, err := parseTime("")
	require.NoError(t, err)
	assert.Nil(t, ts)

	ts, err = parseTime("2021-06-01")
	require.NoError(t, err)
	assert.Equal(t, 2021, ts.Year())

	ts, err = parseTime("2021-06-01T12:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 12, ts.Hour())

	_, err = parseTime("last tuesday")
	assert.ErrorIs(t, err, routeerr.ErrInvalidInput)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 3, exitCode(routeerr.Errorf(routeerr.NoPathFound, routeerr.StageSolve, "op", "none")))
	assert.Equal(t, 4, exitCode(routeerr.Errorf(routeerr.UnresolvableEndpoint, routeerr.StageSnap, "op", "far")))
	assert.Equal(t, 2, exitCode(routeerr.Errorf(routeerr.InvalidInput, routeerr.StageQuery, "op", "bad")))
	assert.Equal(t, 1, exitCode(routeerr.Errorf(routeerr.SerializationError, routeerr.StagePersist, "op", "corrupt")))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}

func TestSnapshotFlagsDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.GraphPath = "graph.gob"
	cfg.StorePath = "store"
	cfg.Area = "montreal"

	f := snapshotFlags{}.withDefaults(cfg)
	assert.Equal(t, snapshotFlags{graphPath: "graph.gob", storePath: "store", area: "montreal"}, f)

	// an explicit source wins over both configured ones
	f = snapshotFlags{storePath: "other", area: "laval"}.withDefaults(cfg)
	assert.Equal(t, snapshotFlags{storePath: "other", area: "laval"}, f)
}

func TestPrintRoute(t *testing.T) {
	var buf bytes.Buffer
	printRoute(&buf, &routing.Route{
		OriginNode: 1, DestinationNode: 2, Tolerance: 0.5, LengthM: 120, Risk: 3,
		Segments: []routing.Segment{{From: 1, To: 2, LengthM: 120, Risk: 3}},
	})
	out := buf.String()
	assert.Contains(t, out, "Origin node:       1")
	assert.Contains(t, out, "(unnamed)")
	assert.Contains(t, out, "Segments:          1")
}
