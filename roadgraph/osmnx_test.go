package roadgraph

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedthameursassi/saferoute/routeerr"
)

const osmnxExport = `{
  "directed": true,
  "multigraph": true,
  "graph": {
    "nodes": [
      {"id": 101, "x": -73.5700, "y": 45.5000},
      {"id": "102", "lon": -73.5690, "lat": 45.5005},
      {"id": 103, "x": -73.5680, "y": 45.5010}
    ],
    "links": [
      {"source": 101, "target": "102", "key": 0, "length": 95.5,
       "geometry": "LINESTRING (-73.5700 45.5000, -73.5695 45.5002, -73.5690 45.5005)",
       "name": "Rue Sainte-Catherine"},
      {"source": 102, "target": 103, "key": 0,
       "geometry": {"type": "LineString", "coordinates": [[-73.5690, 45.5005], [-73.5680, 45.5010]]},
       "name": ["Boulevard Saint-Laurent", "Route 335"]},
      {"source": 103, "target": 101, "key": 1,
       "geometry": [[-73.5680, 45.5010], [-73.5700, 45.5000]]},
      {"source": 103, "target": 102}
    ]
  }
}`

func TestLoadOSMNX(t *testing.T) {
	g, err := LoadOSMNX(strings.NewReader(osmnxExport))
	require.NoError(t, err)

	assert.Equal(t, 3, g.NodeCount())
	assert.Equal(t, 4, g.EdgeCount())

	n, ok := g.Node(102)
	require.True(t, ok)
	assert.Equal(t, 45.5005, n.Lat)
	assert.Equal(t, -73.5690, n.Lon)

	wktEdge := g.Edge(0)
	assert.Equal(t, int64(101), wktEdge.From)
	assert.Equal(t, int64(102), wktEdge.To)
	assert.Equal(t, 95.5, wktEdge.Length)
	assert.Len(t, wktEdge.Geometry, 3)
	assert.Equal(t, "Rue Sainte-Catherine", wktEdge.Name)

	geojsonEdge := g.Edge(1)
	assert.Equal(t, orb.LineString{{-73.5690, 45.5005}, {-73.5680, 45.5010}}, geojsonEdge.Geometry)
	assert.Equal(t, "Boulevard Saint-Laurent,Route 335", geojsonEdge.Name)
	assert.Greater(t, geojsonEdge.Length, 0.0)

	arrayEdge := g.Edge(2)
	assert.Equal(t, 1, arrayEdge.Key)
	assert.Len(t, arrayEdge.Geometry, 2)

	bare := g.Edge(3)
	assert.Equal(t, orb.LineString{{-73.5680, 45.5010}, {-73.5690, 45.5005}}, bare.Geometry)
	assert.Empty(t, bare.Name)
}

func TestLoadOSMNXUnwrapped(t *testing.T) {
	doc := `{"nodes": [{"id": 1, "x": 2.35, "y": 48.85}, {"id": 2, "x": 2.36, "y": 48.85}],
	         "edges": [{"source": 1, "target": 2, "length": 733}]}`
	g, err := LoadOSMNX(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, g.NodeCount())
	require.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 733.0, g.Edge(0).Length)
}

func TestLoadOSMNXMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":         `{"nodes": [`,
		"missing node":     `{"nodes": [{"id": 1, "x": 0, "y": 0}], "links": [{"source": 1, "target": 2}]}`,
		"no coordinates":   `{"nodes": [{"id": 1}]}`,
		"bad id":           `{"nodes": [{"id": true, "x": 0, "y": 0}]}`,
		"polygon geometry": `{"nodes": [{"id": 1, "x": 0, "y": 0}, {"id": 2, "x": 1, "y": 1}], "links": [{"source": 1, "target": 2, "geometry": "POLYGON ((0 0, 1 0, 1 1, 0 0))"}]}`,
		"geojson point":    `{"nodes": [{"id": 1, "x": 0, "y": 0}, {"id": 2, "x": 1, "y": 1}], "links": [{"source": 1, "target": 2, "geometry": {"type": "Point", "coordinates": [0, 0]}}]}`,
		"geojson unknown":  `{"nodes": [{"id": 1, "x": 0, "y": 0}, {"id": 2, "x": 1, "y": 1}], "links": [{"source": 1, "target": 2, "geometry": {"type": "Curve", "coordinates": []}}]}`,
		"negative length":  `{"nodes": [{"id": 1, "x": 0, "y": 0}, {"id": 2, "x": 1, "y": 1}], "links": [{"source": 1, "target": 2, "length": -3}]}`,
		"duplicate edge":   `{"nodes": [{"id": 1, "x": 0, "y": 0}, {"id": 2, "x": 1, "y": 1}], "links": [{"source": 1, "target": 2}, {"source": 1, "target": 2, "key": 0}]}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadOSMNX(strings.NewReader(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, routeerr.ErrMalformedTopology)
		})
	}
}

func TestLoadOSMNXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.json")
	require.NoError(t, os.WriteFile(path, []byte(osmnxExport), 0o644))

	g, err := LoadOSMNXFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, g.EdgeCount())

	_, err = LoadOSMNXFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, routeerr.ErrUnavailable)
}
