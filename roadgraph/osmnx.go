package roadgraph

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"

	"github.com/mohamedthameursassi/saferoute/routeerr"
)

// osmnx node-link export, either wrapped in {"graph": ...} or bare.
type jsonGraph struct {
	Graph *jsonLinks `json:"graph"`
	jsonLinks
}

type jsonLinks struct {
	Nodes []jsonNode `json:"nodes"`
	Links []jsonEdge `json:"links"`
	Edges []jsonEdge `json:"edges"`
}

type jsonNode struct {
	ID  interface{} `json:"id"` // int64 or string
	X   *float64    `json:"x"`
	Y   *float64    `json:"y"`
	Lon *float64    `json:"lon"`
	Lat *float64    `json:"lat"`
}

type jsonEdge struct {
	Source   interface{}     `json:"source"`
	Target   interface{}     `json:"target"`
	Key      interface{}     `json:"key"`
	Length   *float64        `json:"length"`
	Geometry json.RawMessage `json:"geometry"`
	Name     interface{}     `json:"name"` // string or array
}

func convertID(id interface{}) (int64, error) {
	switch v := id.(type) {
	case json.Number:
		return v.Int64()
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("unsupported ID type: %T", id)
	}
}

func convertToString(val interface{}) string {
	switch v := val.(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, e := range v {
			parts = append(parts, fmt.Sprintf("%v", e))
		}
		return strings.Join(parts, ",")
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// parseGeometry accepts a WKT string, a GeoJSON LineString object or a bare
// coordinate array. Empty input yields a nil geometry.
func parseGeometry(raw json.RawMessage) (orb.LineString, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		geom, err := wkt.Unmarshal(text)
		if err != nil {
			return nil, fmt.Errorf("parse WKT geometry: %w", err)
		}
		ls, ok := geom.(orb.LineString)
		if !ok {
			return nil, fmt.Errorf("geometry is %s, want LineString", geom.GeoJSONType())
		}
		return ls, nil
	}

	if strings.HasPrefix(s, "{") {
		object, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("parse GeoJSON geometry: %w", err)
		}
		ls, ok := object.Geometry().(orb.LineString)
		if !ok {
			return nil, fmt.Errorf("geometry is %s, want LineString", object.Type)
		}
		return ls, nil
	}

	var coords [][2]float64
	if err := json.Unmarshal(raw, &coords); err != nil {
		return nil, fmt.Errorf("unrecognized geometry: %w", err)
	}
	return toLineString(coords), nil
}

func toLineString(coords [][2]float64) orb.LineString {
	ls := make(orb.LineString, len(coords))
	for i, c := range coords {
		ls[i] = orb.Point{c[0], c[1]}
	}
	return ls
}

// LoadOSMNX builds a graph from an osmnx node-link JSON export. Node
// coordinates are read from lon/lat, falling back to x/y.
func LoadOSMNX(r io.Reader) (*Graph, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc jsonGraph
	if err := dec.Decode(&doc); err != nil {
		return nil, routeerr.New(routeerr.MalformedTopology, routeerr.StageLoadTopology, "decode osmnx json", err)
	}

	// plain networkx exports keep "graph" for graph attributes only
	links := doc.jsonLinks
	if len(links.Nodes) == 0 && doc.Graph != nil {
		links = *doc.Graph
	}
	edges := links.Links
	if len(edges) == 0 {
		edges = links.Edges
	}

	b := NewBuilder()
	for _, n := range links.Nodes {
		id, err := convertID(n.ID)
		if err != nil {
			return nil, malformed("node ID (%v): %v", n.ID, err)
		}
		var lat, lon float64
		switch {
		case n.Lat != nil && n.Lon != nil:
			lat, lon = *n.Lat, *n.Lon
		case n.X != nil && n.Y != nil:
			lat, lon = *n.Y, *n.X
		default:
			return nil, malformed("node %d has no coordinates", id)
		}
		if err := b.AddNode(Node{ID: id, Lat: lat, Lon: lon}); err != nil {
			return nil, err
		}
	}

	for i, e := range edges {
		from, err := convertID(e.Source)
		if err != nil {
			return nil, malformed("edge %d source (%v): %v", i, e.Source, err)
		}
		to, err := convertID(e.Target)
		if err != nil {
			return nil, malformed("edge %d target (%v): %v", i, e.Target, err)
		}
		key := 0
		if e.Key != nil {
			k, err := convertID(e.Key)
			if err != nil {
				return nil, malformed("edge %d key (%v): %v", i, e.Key, err)
			}
			key = int(k)
		}
		geom, err := parseGeometry(e.Geometry)
		if err != nil {
			return nil, malformed("edge %d->%d: %v", from, to, err)
		}

		spec := EdgeSpec{
			From:     from,
			To:       to,
			Key:      key,
			Geometry: geom,
			Name:     convertToString(e.Name),
		}
		if e.Length != nil {
			spec.Length = *e.Length
			spec.HasLength = true
		}
		if err := b.AddEdge(spec); err != nil {
			return nil, err
		}
	}

	return b.Build()
}

// LoadOSMNXFile opens path and parses it with LoadOSMNX.
func LoadOSMNXFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, routeerr.New(routeerr.Unavailable, routeerr.StageLoadTopology, "open network", err)
	}
	defer f.Close()

	return LoadOSMNX(bufio.NewReader(f))
}
