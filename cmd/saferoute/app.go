package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mohamedthameursassi/saferoute/config"
	"github.com/mohamedthameursassi/saferoute/geocode"
	"github.com/mohamedthameursassi/saferoute/graphstore"
	"github.com/mohamedthameursassi/saferoute/logging"
	"github.com/mohamedthameursassi/saferoute/roadgraph"
	"github.com/mohamedthameursassi/saferoute/routeerr"
	"github.com/mohamedthameursassi/saferoute/routing"
)

// app bundles what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = strings.ToLower(logLevel)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logger}, nil
}

func (rt *app) close() {
	_ = rt.logger.Sync()
}

// parseCoordinate reads "lat,lon".
func parseCoordinate(s string) (routing.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return routing.Coordinate{}, routeerr.Errorf(routeerr.InvalidInput, routeerr.StageQuery, "parse coordinate", "want lat,lon, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return routing.Coordinate{}, routeerr.Errorf(routeerr.InvalidInput, routeerr.StageQuery, "parse coordinate", "latitude %q: %v", parts[0], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return routing.Coordinate{}, routeerr.Errorf(routeerr.InvalidInput, routeerr.StageQuery, "parse coordinate", "longitude %q: %v", parts[1], err)
	}
	return routing.Coordinate{Lat: lat, Lon: lon}, nil
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, routeerr.Errorf(routeerr.InvalidInput, routeerr.StageLoadIncidents, "parse time", "unrecognized time %q", s)
}

// snapshotFlags selects where a command reads its graph from.
type snapshotFlags struct {
	graphPath string
	storePath string
	area      string
}

func (f snapshotFlags) withDefaults(cfg *config.Config) snapshotFlags {
	if f.graphPath == "" && f.storePath == "" {
		f.graphPath = cfg.GraphPath
		f.storePath = cfg.StorePath
	}
	if f.area == "" {
		f.area = cfg.Area
	}
	return f
}

func (f snapshotFlags) load(rt *app) (*roadgraph.Graph, graphstore.Meta, error) {
	f = f.withDefaults(rt.cfg)
	switch {
	case f.graphPath != "":
		rt.logger.Debug("loading graph snapshot", zap.String("path", f.graphPath))
		return graphstore.LoadFile(f.graphPath)
	case f.storePath != "":
		store, err := graphstore.OpenBadger(graphstore.BadgerConfig{Path: f.storePath, Logger: rt.logger})
		if err != nil {
			return nil, graphstore.Meta{}, err
		}
		defer store.Close()
		rt.logger.Debug("loading graph snapshot", zap.String("store", f.storePath), zap.String("area", f.area))
		return store.Get(f.area)
	default:
		return nil, graphstore.Meta{}, routeerr.Errorf(routeerr.InvalidInput, routeerr.StageQuery, "load snapshot", "no graph given: use --graph or --store")
	}
}

func (rt *app) geocoder() (geocode.Geocoder, error) {
	return geocode.NewNominatim(geocode.Config{
		BaseURL:   rt.cfg.Geocoder.BaseURL,
		UserAgent: rt.cfg.Geocoder.UserAgent,
		Timeout:   rt.cfg.Geocoder.Timeout,
		Logger:    rt.logger.Named("geocode"),
	})
}

// endpoint resolves a coordinate flag or, failing that, an address flag.
func (rt *app) endpoint(ctx context.Context, coord, address, which string) (routing.Coordinate, error) {
	if coord != "" {
		return parseCoordinate(coord)
	}
	if address == "" {
		return routing.Coordinate{}, routeerr.Errorf(routeerr.InvalidInput, routeerr.StageQuery, "resolve "+which, "--%s or --%s-address is required", which, which)
	}
	g, err := rt.geocoder()
	if err != nil {
		return routing.Coordinate{}, err
	}
	p, err := g.Geocode(ctx, address)
	if err != nil {
		return routing.Coordinate{}, fmt.Errorf("%s address: %w", which, err)
	}
	return routing.Coordinate{Lat: p.Lat, Lon: p.Lon}, nil
}
