package graphstore

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mohamedthameursassi/saferoute/metrics"
	"github.com/mohamedthameursassi/saferoute/roadgraph"
	"github.com/mohamedthameursassi/saferoute/routeerr"
)

// SaveFile writes a snapshot to path. The file is written next to its
// destination and renamed into place, so readers never see a partial file.
func SaveFile(path string, g *roadgraph.Graph, meta Meta) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return routeerr.New(routeerr.Unavailable, routeerr.StagePersist, "create directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return routeerr.New(routeerr.Unavailable, routeerr.StagePersist, "create temp file", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := Encode(w, g, meta); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return serialization("flush snapshot", err)
	}
	if err := tmp.Sync(); err != nil {
		return serialization("sync snapshot", err)
	}
	if err := tmp.Close(); err != nil {
		return serialization("close snapshot", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return routeerr.New(routeerr.Unavailable, routeerr.StagePersist, "rename snapshot", err)
	}
	return nil
}

// LoadFile reads a snapshot from path. A missing file is Unavailable; a
// corrupt one is a SerializationError.
func LoadFile(path string) (g *roadgraph.Graph, meta Meta, err error) {
	defer func() { metrics.RecordSnapshotLoad("file", err) }()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, Meta{}, routeerr.New(routeerr.Unavailable, routeerr.StagePersist, "open snapshot", fmt.Errorf("no snapshot at %s", path))
		}
		return nil, Meta{}, routeerr.New(routeerr.Unavailable, routeerr.StagePersist, "open snapshot", err)
	}
	defer f.Close()

	return Decode(bufio.NewReader(f))
}
