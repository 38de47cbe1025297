package routing

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohamedthameursassi/saferoute/routeerr"
)

func coordOf(t *testing.T, r *Router, id int64) Coordinate {
	t.Helper()
	n, ok := r.Graph().Node(id)
	require.True(t, ok)
	return Coordinate{Lat: n.Lat, Lon: n.Lon}
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	r, err := NewRouter(flipGraph(t), DefaultOptions(), nil)
	require.NoError(t, err)
	return r
}

func TestRouterRoute(t *testing.T) {
	r := newTestRouter(t)
	q := Query{Origin: coordOf(t, r, 1), Destination: coordOf(t, r, 2), Tolerance: 0.9}

	route, err := r.Route(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, int64(1), route.OriginNode)
	assert.Equal(t, int64(2), route.DestinationNode)
	assert.Equal(t, []int64{1, 3, 2}, route.Nodes)
	assert.Len(t, route.Segments, 2)
	assert.Equal(t, 300.0, route.LengthM)
	assert.Zero(t, route.Risk)
	assert.InDelta(t, 30, route.Weight, 1e-9)
	assert.Equal(t, 0.9, route.Tolerance)
	assert.InDelta(t, 0, route.SnapDistanceM[0], 1e-6)

	// shared joint at node 3 appears once
	require.Len(t, route.Coordinates, 3)
	assert.Equal(t, coordOf(t, r, 1), route.Coordinates[0])
	assert.Equal(t, coordOf(t, r, 3), route.Coordinates[1])
	assert.Equal(t, coordOf(t, r, 2), route.Coordinates[2])
}

func TestRouterRouteSameNode(t *testing.T) {
	r := newTestRouter(t)
	c := coordOf(t, r, 3)
	route, err := r.Route(context.Background(), Query{Origin: c, Destination: c, Tolerance: 0.5})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, route.Nodes)
	assert.Equal(t, []Coordinate{c}, route.Coordinates)
	assert.Zero(t, route.LengthM)
}

func TestRouterErrors(t *testing.T) {
	_, err := NewRouter(nil, DefaultOptions(), nil)
	assert.ErrorIs(t, err, routeerr.ErrUnavailable)

	_, err = NewRouter(abcGraph(t), Options{RiskWeightFactor: -5}, nil)
	assert.ErrorIs(t, err, routeerr.ErrInvalidInput)

	r := newTestRouter(t)
	_, err = r.Route(context.Background(), Query{Origin: coordOf(t, r, 1), Destination: coordOf(t, r, 2), Tolerance: 1.5})
	assert.ErrorIs(t, err, routeerr.ErrInvalidInput)

	_, err = r.Route(context.Background(), Query{Origin: coordOf(t, r, 2), Destination: coordOf(t, r, 1), Tolerance: 0.5})
	assert.ErrorIs(t, err, routeerr.ErrNoPathFound)

	_, err = r.Route(context.Background(), Query{Origin: Coordinate{Lat: 100}, Destination: coordOf(t, r, 1)})
	assert.ErrorIs(t, err, routeerr.ErrUnresolvableEndpoint)
}

func TestRouterCompare(t *testing.T) {
	r := newTestRouter(t)
	routes, err := r.Compare(context.Background(), coordOf(t, r, 1), coordOf(t, r, 2), []float64{0.1, 0.9})
	require.NoError(t, err)
	require.Len(t, routes, 2)

	assert.Equal(t, []int64{1, 2}, routes[0].Nodes)
	assert.Equal(t, 0.1, routes[0].Tolerance)
	assert.Equal(t, []int64{1, 3, 2}, routes[1].Nodes)
	assert.Equal(t, 0.9, routes[1].Tolerance)

	_, err = r.Compare(context.Background(), coordOf(t, r, 1), coordOf(t, r, 2), nil)
	assert.ErrorIs(t, err, routeerr.ErrInvalidInput)
	_, err = r.Compare(context.Background(), coordOf(t, r, 1), coordOf(t, r, 2), []float64{0.2, -1})
	assert.ErrorIs(t, err, routeerr.ErrInvalidInput)
}

func TestRouterOverlayCache(t *testing.T) {
	r := newTestRouter(t)

	a, err := r.Overlay(0.4)
	require.NoError(t, err)
	b, err := r.Overlay(0.4)
	require.NoError(t, err)
	assert.Same(t, a, b)

	neg, err := r.Overlay(-0.0)
	require.NoError(t, err)
	pos, err := r.Overlay(0)
	require.NoError(t, err)
	assert.Same(t, neg, pos)

	uncached, err := NewRouter(flipGraph(t), Options{RiskWeightFactor: 1000}, nil)
	require.NoError(t, err)
	c, err := uncached.Overlay(0.4)
	require.NoError(t, err)
	d, err := uncached.Overlay(0.4)
	require.NoError(t, err)
	assert.NotSame(t, c, d)
	assert.Equal(t, c, d)
}

func TestRouterConcurrentQueries(t *testing.T) {
	r := newTestRouter(t)
	tolerances := []float64{0, 0.1, 0.3, 0.5, 0.7, 0.9, 1}

	want := make(map[float64][]int64)
	for _, tol := range tolerances {
		route, err := r.Route(context.Background(), Query{Origin: coordOf(t, r, 1), Destination: coordOf(t, r, 2), Tolerance: tol})
		require.NoError(t, err)
		want[tol] = route.Nodes
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		tol := tolerances[i%len(tolerances)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			route, err := r.Route(context.Background(), Query{Origin: Coordinate{Lat: 45, Lon: -72.999}, Destination: Coordinate{Lat: 45, Lon: -72.998}, Tolerance: tol})
			if err != nil {
				errs <- err
				return
			}
			if !equalPath(route.Nodes, want[tol]) {
				errs <- assert.AnError
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
