// Package metrics holds the prometheus collectors shared by the engine and
// its servers.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "saferoute"

var (
	// aggregationDuration measures one full risk annotation pass.
	aggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "risk",
		Name:      "aggregation_duration_seconds",
		Help:      "Time to annotate every edge of a graph with incident risk",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	edgesAnnotated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "risk",
		Name:      "edges_annotated_total",
		Help:      "Total edges annotated with risk",
	})

	// riskyEdges is the number of edges with non-zero risk in the last pass.
	riskyEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "risk",
		Name:      "risky_edges",
		Help:      "Edges with non-zero risk after the last aggregation",
	})

	// queries counts route queries.
	// Labels: endpoint (route, compare, cli), outcome (ok or an error kind)
	queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "routing",
		Name:      "queries_total",
		Help:      "Total route queries by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	queryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "routing",
		Name:      "query_latency_seconds",
		Help:      "Route query latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"endpoint"})

	// overlayCache counts overlay lookups.
	// Labels: result (hit, miss)
	overlayCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "routing",
		Name:      "overlay_cache_total",
		Help:      "Weight overlay cache lookups by result",
	}, []string{"result"})

	// snapshotLoads counts graph snapshot loads.
	// Labels: source (file, badger, reload), result (ok, error)
	snapshotLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "graphstore",
		Name:      "snapshot_loads_total",
		Help:      "Graph snapshot loads by source and result",
	}, []string{"source", "result"})
)

// RecordAggregation records one annotation pass.
func RecordAggregation(d time.Duration, edges, risky int) {
	aggregationDuration.Observe(d.Seconds())
	edgesAnnotated.Add(float64(edges))
	riskyEdges.Set(float64(risky))
}

// RecordQuery records the outcome and latency of a route query.
func RecordQuery(endpoint, outcome string, d time.Duration) {
	queries.WithLabelValues(endpoint, outcome).Inc()
	queryLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

func RecordOverlayCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	overlayCache.WithLabelValues(result).Inc()
}

// RecordSnapshotLoad records a graph snapshot load attempt.
func RecordSnapshotLoad(source string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	snapshotLoads.WithLabelValues(source, result).Inc()
}
