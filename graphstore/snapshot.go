// Package graphstore persists risk-annotated graphs so that incident
// aggregation runs once and queries can start from a snapshot.
package graphstore

import (
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/paulmach/orb"

	"github.com/mohamedthameursassi/saferoute/roadgraph"
	"github.com/mohamedthameursassi/saferoute/routeerr"
)

const (
	Magic   = "SAFEROUTE-GRAPH"
	Version = 1
)

// Meta describes how a snapshot was produced.
type Meta struct {
	Area          string    `json:"area"`
	CreatedAt     time.Time `json:"createdAt"`
	Radius        float64   `json:"radiusM"`
	SampleSpacing float64   `json:"sampleSpacingM"`
	Incidents     int       `json:"incidents"`
}

type nodeRecord struct {
	ID       int64
	Lat, Lon float64
}

type edgeRecord struct {
	From, To int64
	Key      int
	Geometry [][2]float64
	Length   float64
	Risk     float64
	Name     string
}

// snapshot is the gob payload. Combined weights are never stored; they
// depend on the query tolerance.
type snapshot struct {
	Magic   string
	Version int
	Meta    Meta
	Nodes   []nodeRecord
	Edges   []edgeRecord
}

func serialization(op string, err error) error {
	return routeerr.New(routeerr.SerializationError, routeerr.StagePersist, op, err)
}

// Encode writes g and meta to w.
func Encode(w io.Writer, g *roadgraph.Graph, meta Meta) error {
	snap := snapshot{Magic: Magic, Version: Version, Meta: meta}

	for _, n := range g.Nodes() {
		snap.Nodes = append(snap.Nodes, nodeRecord{ID: n.ID, Lat: n.Lat, Lon: n.Lon})
	}
	for _, e := range g.Edges() {
		geom := make([][2]float64, len(e.Geometry))
		for i, p := range e.Geometry {
			geom[i] = [2]float64{p[0], p[1]}
		}
		snap.Edges = append(snap.Edges, edgeRecord{
			From:     e.From,
			To:       e.To,
			Key:      e.Key,
			Geometry: geom,
			Length:   e.Length,
			Risk:     e.Risk,
			Name:     e.Name,
		})
	}

	if err := gob.NewEncoder(w).Encode(&snap); err != nil {
		return serialization("encode snapshot", err)
	}
	return nil
}

// Decode reads a snapshot written by Encode. The graph is rebuilt through
// roadgraph.Builder so a payload that breaks any graph invariant is
// rejected; every failure is a SerializationError.
func Decode(r io.Reader) (*roadgraph.Graph, Meta, error) {
	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return nil, Meta{}, serialization("decode snapshot", err)
	}
	if snap.Magic != Magic {
		return nil, Meta{}, serialization("decode snapshot", fmt.Errorf("bad magic %q", snap.Magic))
	}
	if snap.Version != Version {
		return nil, Meta{}, serialization("decode snapshot", fmt.Errorf("unsupported version %d (want %d)", snap.Version, Version))
	}

	b := roadgraph.NewBuilder()
	for _, n := range snap.Nodes {
		if err := b.AddNode(roadgraph.Node{ID: n.ID, Lat: n.Lat, Lon: n.Lon}); err != nil {
			return nil, Meta{}, serialization("rebuild graph", err)
		}
	}
	for _, e := range snap.Edges {
		geom := make(orb.LineString, len(e.Geometry))
		for i, p := range e.Geometry {
			geom[i] = orb.Point{p[0], p[1]}
		}
		err := b.AddEdge(roadgraph.EdgeSpec{
			From:      e.From,
			To:        e.To,
			Key:       e.Key,
			Geometry:  geom,
			Length:    e.Length,
			HasLength: true,
			Risk:      e.Risk,
			Name:      e.Name,
		})
		if err != nil {
			return nil, Meta{}, serialization("rebuild graph", err)
		}
	}

	g, err := b.Build()
	if err != nil {
		return nil, Meta{}, serialization("rebuild graph", err)
	}
	return g, snap.Meta, nil
}
