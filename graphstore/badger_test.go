package graphstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mohamedthameursassi/saferoute/routeerr"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	cfg := InMemoryBadgerConfig()
	cfg.Logger = zap.NewNop()
	s, err := OpenBadger(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBadgerStore(t *testing.T) {
	s := openTestStore(t)
	g := sampleGraph(t)

	require.NoError(t, s.Put("montreal", g, sampleMeta()))
	other := sampleMeta()
	other.Area = "laval"
	require.NoError(t, s.Put("laval", g, other))

	got, meta, err := s.Get("montreal")
	require.NoError(t, err)
	assertSameGraph(t, g, got)
	assert.Equal(t, "montreal", meta.Area)

	areas, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"laval", "montreal"}, areas)

	require.NoError(t, s.Delete("laval"))
	require.NoError(t, s.Delete("never-stored"))
	areas, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"montreal"}, areas)
}

func TestBadgerStoreReplace(t *testing.T) {
	s := openTestStore(t)
	g := sampleGraph(t)
	require.NoError(t, s.Put("montreal", g, sampleMeta()))

	require.NoError(t, g.SetRisk(0, 42))
	require.NoError(t, s.Put("montreal", g, sampleMeta()))

	got, _, err := s.Get("montreal")
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.Edge(0).Risk)
}

func TestBadgerStoreErrors(t *testing.T) {
	s := openTestStore(t)

	_, _, err := s.Get("nowhere")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, routeerr.ErrUnavailable)

	assert.ErrorIs(t, s.Put("  ", sampleGraph(t), Meta{}), routeerr.ErrInvalidInput)
	_, _, err = s.Get("")
	assert.ErrorIs(t, err, routeerr.ErrInvalidInput)

	_, err = OpenBadger(BadgerConfig{})
	assert.ErrorIs(t, err, routeerr.ErrInvalidInput)
}

func TestBadgerStorePersistent(t *testing.T) {
	dir := t.TempDir()
	g := sampleGraph(t)

	s, err := OpenBadger(DefaultBadgerConfig(dir))
	require.NoError(t, err)
	require.NoError(t, s.Put("montreal", g, sampleMeta()))
	require.NoError(t, s.Close())

	s, err = OpenBadger(DefaultBadgerConfig(dir))
	require.NoError(t, err)
	defer s.Close()
	got, _, err := s.Get("montreal")
	require.NoError(t, err)
	assertSameGraph(t, g, got)
}
