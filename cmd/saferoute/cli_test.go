package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedthameursassi/saferoute/incidents"
	"github.com/mohamedthameursassi/saferoute/routing"
)

// 1 -> 2 is short and passes an incident, 1 -> 3 -> 2 is long and clean.
// 8 -> 9 is an island nothing else connects to.
const testNetwork = `{
  "directed": true,
  "multigraph": true,
  "graph": {
    "nodes": [
      {"id": 1, "x": -73.570, "y": 45.500},
      {"id": 2, "x": -73.560, "y": 45.500},
      {"id": 3, "x": -73.565, "y": 45.505},
      {"id": 8, "x": -73.400, "y": 45.600},
      {"id": 9, "x": -73.400, "y": 45.601}
    ],
    "links": [
      {"source": 1, "target": 2, "key": 0, "length": 100, "name": "Rue Risquée"},
      {"source": 1, "target": 3, "key": 0, "length": 150},
      {"source": 3, "target": 2, "key": 0, "length": 150},
      {"source": 8, "target": 9, "key": 0, "length": 111}
    ]
  }
}`

// I-1 sits 11 m from the midpoint of 1 -> 2; I-2 is far from every road.
const testIncidents = "ID,Severity,Start_Lat,Start_Lng,Weather_Timestamp,Weather_Condition,Sunrise_Sunset\n" +
	"I-1,3,45.5001,-73.5650,2021-03-01 08:15:00,Light Rain,Day\n" +
	"I-2,2,45.7000,-73.2000,2021-03-02 22:40:00,Fair,Night\n"

// resetFlags puts every flag back to its default, since cobra binds them to
// package variables that outlive a single Execute.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if strings.HasSuffix(f.Value.Type(), "Slice") {
			return
		}
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func writeInputs(t *testing.T) (network, accidents string) {
	t.Helper()
	dir := t.TempDir()
	network = filepath.Join(dir, "network.json")
	accidents = filepath.Join(dir, "accidents.csv")
	require.NoError(t, os.WriteFile(network, []byte(testNetwork), 0o644))
	require.NoError(t, os.WriteFile(accidents, []byte(testIncidents), 0o644))
	return network, accidents
}

func TestPrecomputeQueryInspect(t *testing.T) {
	network, accidents := writeInputs(t)
	graph := filepath.Join(t.TempDir(), "graph.gob")

	out, err := execute(t, "precompute",
		"--network", network, "--incidents", accidents,
		"--out", graph, "--area", "test")
	require.NoError(t, err)
	assert.Contains(t, out, "Edges:        4\n")
	assert.Contains(t, out, "Risky edges:  1\n")
	assert.FileExists(t, graph)

	query := func(tolerance string) routing.Route {
		out, err := execute(t, "query", "--graph", graph,
			"--from", "45.500,-73.570", "--to", "45.500,-73.560",
			"--tolerance", tolerance, "--json")
		require.NoError(t, err)
		var route routing.Route
		require.NoError(t, json.Unmarshal([]byte(out), &route))
		return route
	}

	shortest := query("0")
	assert.Equal(t, []int64{1, 2}, shortest.Nodes)
	assert.Equal(t, 3.0, shortest.Risk)
	assert.InDelta(t, 100, shortest.LengthM, 1e-9)

	safest := query("1")
	assert.Equal(t, []int64{1, 3, 2}, safest.Nodes)
	assert.Zero(t, safest.Risk)
	assert.InDelta(t, 300, safest.LengthM, 1e-9)

	out, err = execute(t, "compare", "--graph", graph,
		"--from", "45.500,-73.570", "--to", "45.500,-73.560", "--json")
	require.NoError(t, err)
	var routes []routing.Route
	require.NoError(t, json.Unmarshal([]byte(out), &routes))
	require.Len(t, routes, 2)
	assert.Equal(t, shortest.Nodes, routes[0].Nodes)
	assert.Equal(t, safest.Nodes, routes[1].Nodes)

	out, err = execute(t, "inspect", "--graph", graph)
	require.NoError(t, err)
	assert.Contains(t, out, "Area:            test\n")
	assert.Contains(t, out, "Radius:          100 m\n")
	assert.Contains(t, out, "Incidents:       2\n")
	assert.Contains(t, out, "Nodes:           5\n")
	assert.Contains(t, out, "Edges:           4\n")
	assert.Contains(t, out, "Risky edges:     1\n")

	// the island is never reachable from node 1
	_, err = execute(t, "query", "--graph", graph,
		"--from", "45.500,-73.570", "--to", "45.6005,-73.400")
	require.Error(t, err)
	assert.Equal(t, 3, exitCode(err))
}

func TestQueryErrors(t *testing.T) {
	_, err := execute(t, "query", "--graph", filepath.Join(t.TempDir(), "missing.gob"),
		"--from", "45.5,-73.5", "--to", "45.6,-73.6")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(err))

	network, accidents := writeInputs(t)
	graph := filepath.Join(t.TempDir(), "graph.gob")
	_, err = execute(t, "precompute", "--network", network, "--incidents", accidents, "--out", graph)
	require.NoError(t, err)

	_, err = execute(t, "query", "--graph", graph, "--from", "north", "--to", "45.6,-73.6")
	assert.Equal(t, 2, exitCode(err))

	_, err = execute(t, "query", "--graph", graph, "--from", "45.5,-73.5")
	assert.Equal(t, 2, exitCode(err))
}

func TestIncidentsStats(t *testing.T) {
	_, accidents := writeInputs(t)

	out, err := execute(t, "incidents", "stats", "--incidents", accidents, "--json")
	require.NoError(t, err)
	var a incidents.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, 2, a.Incidents)
	require.NotNil(t, a.RiskiestHour)
	assert.Equal(t, 8, *a.RiskiestHour)
	assert.Equal(t, []incidents.PeriodCount{{Period: "Day", Count: 1}, {Period: "Night", Count: 1}}, a.ByDayNight)

	out, err = execute(t, "incidents", "stats", "--incidents", accidents)
	require.NoError(t, err)
	assert.Contains(t, out, "Riskiest hour:   08:00\n")
	assert.Contains(t, out, "Light Rain")

	_, err = execute(t, "incidents", "stats", "--incidents", accidents, "--since", "someday")
	assert.Equal(t, 2, exitCode(err))
}
