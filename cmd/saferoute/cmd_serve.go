package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohamedthameursassi/saferoute/geocode"
	"github.com/mohamedthameursassi/saferoute/graphstore"
	"github.com/mohamedthameursassi/saferoute/routeerr"
	"github.com/mohamedthameursassi/saferoute/server"
)

var (
	serveSnapshot snapshotFlags
	serveAddress  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve route queries over HTTP",
	Long: `Load a graph snapshot and answer route queries over HTTP.

Endpoints:
  POST /api/route          one route
  POST /api/route/compare  one route per tolerance
  GET  /api/graph          snapshot metadata and risk statistics
  GET  /health
  GET  /metrics

When serving from a file and server.watch_graph is set, a rewritten snapshot
is picked up without a restart.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveSnapshot.graphPath, "graph", "", "snapshot file")
	f.StringVar(&serveSnapshot.storePath, "store", "", "badger store directory")
	f.StringVar(&serveSnapshot.area, "area", "", "area to read from the store")
	f.StringVar(&serveAddress, "address", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()
	if serveAddress != "" {
		rt.cfg.Server.Address = serveAddress
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var geocoder geocode.Geocoder
	if rt.cfg.Geocoder.BaseURL != "" {
		g, err := geocode.NewNominatim(geocode.Config{
			BaseURL:   rt.cfg.Geocoder.BaseURL,
			UserAgent: rt.cfg.Geocoder.UserAgent,
			Timeout:   rt.cfg.Geocoder.Timeout,
			CacheSize: 1024,
			CacheTTL:  time.Hour,
			Logger:    rt.logger.Named("geocode"),
		})
		if err != nil {
			return err
		}
		geocoder = g
	}

	srv := server.New(rt.cfg, geocoder, rt.logger.Named("server"))

	flags := serveSnapshot.withDefaults(rt.cfg)
	var src server.Source
	switch {
	case flags.graphPath != "":
		src = server.FileSource(flags.graphPath)
	case flags.storePath != "":
		store, err := graphstore.OpenBadger(graphstore.BadgerConfig{Path: flags.storePath, SyncWrites: true, Logger: rt.logger})
		if err != nil {
			return err
		}
		defer store.Close()
		src = server.StoreSource(store, flags.area)
	default:
		return routeerr.Errorf(routeerr.InvalidInput, routeerr.StageQuery, "serve", "no graph given: use --graph, --store or graph_path")
	}

	watching := flags.graphPath != "" && rt.cfg.Server.WatchGraph
	if err := srv.Reload(src); err != nil {
		if !watching {
			return err
		}
		rt.logger.Warn("no graph snapshot yet, serving degraded until one appears", zap.Error(err))
	}
	if watching {
		if err := srv.WatchGraph(ctx, flags.graphPath); err != nil {
			return err
		}
	}

	return srv.Run(ctx)
}
