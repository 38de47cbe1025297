package graphstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/mohamedthameursassi/saferoute/metrics"
	"github.com/mohamedthameursassi/saferoute/roadgraph"
	"github.com/mohamedthameursassi/saferoute/routeerr"
)

const keyPrefix = "graph/"

// ErrNotFound is returned (wrapped) when no snapshot exists for an area.
var ErrNotFound = errors.New("snapshot not found")

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in memory, for tests.
	InMemory bool

	SyncWrites bool

	// Logger receives badger's internal logs. Nil disables them.
	Logger *zap.Logger
}

func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{Path: path, SyncWrites: true}
}

func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.logger.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.logger.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.logger.Infof(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.logger.Debugf(format, args...) }

// BadgerStore keeps one snapshot per area under the key "graph/<area>".
type BadgerStore struct {
	db *badger.DB
}

func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, routeerr.Errorf(routeerr.InvalidInput, routeerr.StagePersist, "open store", "path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, routeerr.New(routeerr.Unavailable, routeerr.StagePersist, "open store", fmt.Errorf("create directory %s: %w", cfg.Path, err))
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger.Named("badger").Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, routeerr.New(routeerr.Unavailable, routeerr.StagePersist, "open store", err)
	}
	return &BadgerStore{db: db}, nil
}

func areaKey(area string) ([]byte, error) {
	area = strings.TrimSpace(area)
	if area == "" {
		return nil, routeerr.Errorf(routeerr.InvalidInput, routeerr.StagePersist, "store key", "area must not be empty")
	}
	return []byte(keyPrefix + area), nil
}

// Put stores the snapshot for area, replacing any previous one.
func (s *BadgerStore) Put(area string, g *roadgraph.Graph, meta Meta) error {
	key, err := areaKey(area)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, g, meta); err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf.Bytes())
	})
	if err != nil {
		return routeerr.New(routeerr.Unavailable, routeerr.StagePersist, "put snapshot", err)
	}
	return nil
}

// Get loads the snapshot for area.
func (s *BadgerStore) Get(area string) (g *roadgraph.Graph, meta Meta, err error) {
	defer func() { metrics.RecordSnapshotLoad("badger", err) }()

	key, err := areaKey(area)
	if err != nil {
		return nil, Meta{}, err
	}

	var payload []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, Meta{}, routeerr.New(routeerr.Unavailable, routeerr.StagePersist, "get snapshot", fmt.Errorf("area %q: %w", area, ErrNotFound))
	}
	if err != nil {
		return nil, Meta{}, routeerr.New(routeerr.Unavailable, routeerr.StagePersist, "get snapshot", err)
	}
	return Decode(bytes.NewReader(payload))
}

// List returns the stored areas in sorted order.
func (s *BadgerStore) List() ([]string, error) {
	var areas []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			areas = append(areas, strings.TrimPrefix(string(it.Item().Key()), keyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, routeerr.New(routeerr.Unavailable, routeerr.StagePersist, "list snapshots", err)
	}
	sort.Strings(areas)
	return areas, nil
}

// Delete removes the snapshot for area. Deleting a missing area is not an
// error.
func (s *BadgerStore) Delete(area string) error {
	key, err := areaKey(area)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return routeerr.New(routeerr.Unavailable, routeerr.StagePersist, "delete snapshot", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
