package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohamedthameursassi/saferoute/graphstore"
	"github.com/mohamedthameursassi/saferoute/incidents"
	"github.com/mohamedthameursassi/saferoute/risk"
	"github.com/mohamedthameursassi/saferoute/roadgraph"
	"github.com/mohamedthameursassi/saferoute/routeerr"
)

var (
	precomputeNetwork       string
	precomputeIncidents     string
	precomputeOut           string
	precomputeStore         string
	precomputeArea          string
	precomputeRadius        float64
	precomputeSampleSpacing float64
	precomputeWorkers       int
	precomputeSince         string
	precomputeUntil         string
)

var precomputeCmd = &cobra.Command{
	Use:   "precompute",
	Short: "Annotate a road network with incident risk and save a snapshot",
	Long: `Load an osmnx road network and an incident CSV, score every road segment by
the severity of incidents within the accident radius of its midpoint, and
write the result as a graph snapshot to a file, a badger store, or both.

Examples:
  saferoute precompute --network montreal.json --incidents accidents.csv --out montreal.gob
  saferoute precompute --network montreal.json --incidents accidents.csv --store ./db --area montreal
  saferoute precompute ... --since 2022-01-01 --until 2023-01-01 --radius 150`,
	RunE: runPrecompute,
}

func init() {
	f := precomputeCmd.Flags()
	f.StringVar(&precomputeNetwork, "network", "", "osmnx node-link JSON export (required)")
	f.StringVar(&precomputeIncidents, "incidents", "", "incident CSV (required)")
	f.StringVar(&precomputeOut, "out", "", "snapshot file to write")
	f.StringVar(&precomputeStore, "store", "", "badger store directory to write into")
	f.StringVar(&precomputeArea, "area", "", "area name recorded in the snapshot and used as the store key")
	f.Float64Var(&precomputeRadius, "radius", 0, "accident radius in meters (default from config)")
	f.Float64Var(&precomputeSampleSpacing, "sample-spacing", -1, "sample long edges every N meters instead of midpoint only (default from config)")
	f.IntVar(&precomputeWorkers, "workers", -1, "aggregation workers, 0 for GOMAXPROCS (default from config)")
	f.StringVar(&precomputeSince, "since", "", "ignore incidents before this time")
	f.StringVar(&precomputeUntil, "until", "", "ignore incidents after this time")
	_ = precomputeCmd.MarkFlagRequired("network")
	_ = precomputeCmd.MarkFlagRequired("incidents")
}

func runPrecompute(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	out, store, area := precomputeOut, precomputeStore, precomputeArea
	if out == "" && store == "" {
		out, store = rt.cfg.GraphPath, rt.cfg.StorePath
	}
	if area == "" {
		area = rt.cfg.Area
	}
	if out == "" && store == "" {
		return routeerr.Errorf(routeerr.InvalidInput, routeerr.StagePersist, "precompute", "nowhere to write: use --out or --store")
	}
	if store != "" && area == "" {
		return routeerr.Errorf(routeerr.InvalidInput, routeerr.StagePersist, "precompute", "--area is required with --store")
	}

	opts := risk.Options{
		Radius:        rt.cfg.Risk.AccidentRadiusM,
		SampleSpacing: rt.cfg.Risk.SampleSpacingM,
		Workers:       rt.cfg.Risk.Workers,
	}
	if precomputeRadius > 0 {
		opts.Radius = precomputeRadius
	}
	if precomputeSampleSpacing >= 0 {
		opts.SampleSpacing = precomputeSampleSpacing
	}
	if precomputeWorkers >= 0 {
		opts.Workers = precomputeWorkers
	}

	since, err := parseTime(precomputeSince)
	if err != nil {
		return err
	}
	until, err := parseTime(precomputeUntil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	g, err := roadgraph.LoadOSMNXFile(precomputeNetwork)
	if err != nil {
		return err
	}
	rt.logger.Info("road network loaded", zap.String("path", precomputeNetwork), zap.Int("nodes", g.NodeCount()), zap.Int("edges", g.EdgeCount()))

	incs, stats, err := incidents.LoadFile(precomputeIncidents, incidents.LoadOptions{Since: since, Until: until})
	if err != nil {
		return err
	}
	rt.logger.Info("incidents loaded",
		zap.String("path", precomputeIncidents),
		zap.Int("rows", stats.Rows),
		zap.Int("loaded", stats.Loaded),
		zap.Int("skipped_no_location", stats.SkippedNoLocation),
		zap.Int("outside_window", stats.OutsideWindow),
		zap.Int("defaulted_severity", stats.DefaultedSeverity),
	)

	idx, err := incidents.NewIndex(incs)
	if err != nil {
		return routeerr.New(routeerr.Internal, routeerr.StageLoadIncidents, "index incidents", err)
	}

	summary, err := risk.NewAggregator(opts, rt.logger.Named("risk")).Annotate(ctx, g, idx)
	if err != nil {
		return err
	}

	meta := graphstore.Meta{
		Area:          area,
		CreatedAt:     time.Now().UTC(),
		Radius:        opts.Radius,
		SampleSpacing: opts.SampleSpacing,
		Incidents:     idx.Len(),
	}

	if out != "" {
		if err := graphstore.SaveFile(out, g, meta); err != nil {
			return err
		}
		rt.logger.Info("snapshot written", zap.String("path", out))
	}
	if store != "" {
		db, err := graphstore.OpenBadger(graphstore.DefaultBadgerConfig(store))
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Put(area, g, meta); err != nil {
			return err
		}
		rt.logger.Info("snapshot stored", zap.String("store", store), zap.String("area", area))
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Nodes:        %d\n", g.NodeCount())
	fmt.Fprintf(w, "Edges:        %d\n", summary.Edges)
	fmt.Fprintf(w, "Incidents:    %d (of %d rows)\n", summary.Incidents, stats.Rows)
	fmt.Fprintf(w, "Risky edges:  %d\n", summary.RiskyEdges)
	fmt.Fprintf(w, "Total risk:   %.0f\n", summary.TotalRisk)
	fmt.Fprintf(w, "Max risk:     %.0f\n", summary.MaxRisk)
	fmt.Fprintf(w, "Elapsed:      %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}
