// Package server exposes the routing engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mohamedthameursassi/saferoute/config"
	"github.com/mohamedthameursassi/saferoute/geocode"
	"github.com/mohamedthameursassi/saferoute/graphstore"
	"github.com/mohamedthameursassi/saferoute/metrics"
	"github.com/mohamedthameursassi/saferoute/roadgraph"
	"github.com/mohamedthameursassi/saferoute/routeerr"
	"github.com/mohamedthameursassi/saferoute/routing"
)

// Source produces a graph snapshot, from a file or a store.
type Source func() (*roadgraph.Graph, graphstore.Meta, error)

// FileSource reads snapshots from a gob file.
func FileSource(path string) Source {
	return func() (*roadgraph.Graph, graphstore.Meta, error) {
		return graphstore.LoadFile(path)
	}
}

// StoreSource reads the snapshot of one area from a badger store.
func StoreSource(store *graphstore.BadgerStore, area string) Source {
	return func() (*roadgraph.Graph, graphstore.Meta, error) {
		return store.Get(area)
	}
}

// snapshot is everything derived from one loaded graph. It is replaced as a
// whole; requests hold on to the one they started with.
type snapshot struct {
	router   *routing.Router
	meta     graphstore.Meta
	stats    roadgraph.Stats
	loadedAt time.Time
}

type Server struct {
	cfg      *config.Config
	logger   *zap.Logger
	geocoder geocode.Geocoder
	current  atomic.Pointer[snapshot]
	engine   *gin.Engine

	// held for a whole Reload, so reloads never overlap
	reloadMu sync.Mutex
}

func New(cfg *config.Config, geocoder geocode.Geocoder, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger, geocoder: geocoder}
	s.engine = s.routes()
	return s
}

// Install builds a router for g and makes it the live snapshot.
func (s *Server) Install(g *roadgraph.Graph, meta graphstore.Meta) error {
	router, err := routing.NewRouter(g, routing.Options{
		RiskWeightFactor: s.cfg.Routing.RiskWeightFactor,
		OverlayCacheSize: s.cfg.Routing.OverlayCacheSize,
	}, s.logger.Named("router"))
	if err != nil {
		return err
	}
	snap := &snapshot{
		router:   router,
		meta:     meta,
		stats:    roadgraph.Summarize(g),
		loadedAt: time.Now().UTC(),
	}
	s.current.Store(snap)

	s.logger.Info("graph snapshot installed",
		zap.String("area", meta.Area),
		zap.Int("nodes", snap.stats.Nodes),
		zap.Int("edges", snap.stats.Edges),
		zap.Int("risky_edges", snap.stats.RiskyEdges),
	)
	return nil
}

// Reload loads a snapshot from src and installs it. On failure the
// previous snapshot stays live.
func (s *Server) Reload(src Source) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	g, meta, err := src()
	if err != nil {
		return err
	}
	return s.Install(g, meta)
}

func (s *Server) live() (*snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, routeerr.Errorf(routeerr.Unavailable, routeerr.StageQuery, "load snapshot", "no graph loaded")
	}
	return snap, nil
}

// Handler returns the HTTP handler, for tests and custom listeners.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger))

	corsCfg := cors.DefaultConfig()
	if len(s.cfg.Server.AllowOrigins) == 0 || contains(s.cfg.Server.AllowOrigins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.cfg.Server.AllowOrigins
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", requestIDHeader}
	corsCfg.ExposeHeaders = []string{requestIDHeader}
	r.Use(cors.New(corsCfg))

	api := r.Group("/api")
	api.POST("/route", s.handleRoute)
	api.POST("/route/compare", s.handleCompare)
	api.GET("/graph", s.handleGraph)

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func recordQuery(endpoint string, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = string(routeerr.KindOf(err))
	}
	metrics.RecordQuery(endpoint, outcome, time.Since(start))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
