package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohamedthameursassi/saferoute/metrics"
	"github.com/mohamedthameursassi/saferoute/routeerr"
	"github.com/mohamedthameursassi/saferoute/routing"
)

var (
	querySnapshot    snapshotFlags
	queryFrom        string
	queryTo          string
	queryFromAddress string
	queryToAddress   string
	queryTolerance   float64
	queryTolerances  []float64
	queryJSON        bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Find a risk-aware route between two points",
	Long: `Snap both endpoints to the nearest road node and find the route minimizing
(1 - tolerance) * length + tolerance * risk * factor.

Tolerance 0 is the shortest route, tolerance 1 the least risky.

Examples:
  saferoute query --graph montreal.gob --from 45.50,-73.57 --to 45.52,-73.55
  saferoute query --graph montreal.gob --from-address "McGill University" --to-address "Olympic Stadium" --tolerance 0.9 --json`,
	RunE: runQuery,
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare routes between two points at several risk tolerances",
	Long: `Route the same endpoints once per tolerance, for example the fastest and the
safest route side by side.

Examples:
  saferoute compare --graph montreal.gob --from 45.50,-73.57 --to 45.52,-73.55
  saferoute compare --graph montreal.gob --from 45.50,-73.57 --to 45.52,-73.55 --tolerances 0,0.5,1`,
	RunE: runCompare,
}

func addEndpointFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&querySnapshot.graphPath, "graph", "", "snapshot file")
	f.StringVar(&querySnapshot.storePath, "store", "", "badger store directory")
	f.StringVar(&querySnapshot.area, "area", "", "area to read from the store")
	f.StringVar(&queryFrom, "from", "", "origin as lat,lon")
	f.StringVar(&queryTo, "to", "", "destination as lat,lon")
	f.StringVar(&queryFromAddress, "from-address", "", "origin address, geocoded")
	f.StringVar(&queryToAddress, "to-address", "", "destination address, geocoded")
	f.BoolVar(&queryJSON, "json", false, "print JSON")
}

func init() {
	addEndpointFlags(queryCmd)
	queryCmd.Flags().Float64Var(&queryTolerance, "tolerance", -1, "risk tolerance in [0,1] (default from config)")

	addEndpointFlags(compareCmd)
	compareCmd.Flags().Float64SliceVar(&queryTolerances, "tolerances", []float64{0, 1}, "risk tolerances to compare")
}

func loadRouter(ctx context.Context, rt *app) (*routing.Router, routing.Coordinate, routing.Coordinate, error) {
	var origin, dest routing.Coordinate
	g, _, err := querySnapshot.load(rt)
	if err != nil {
		return nil, origin, dest, err
	}
	router, err := routing.NewRouter(g, routing.Options{
		RiskWeightFactor: rt.cfg.Routing.RiskWeightFactor,
		OverlayCacheSize: rt.cfg.Routing.OverlayCacheSize,
	}, rt.logger.Named("router"))
	if err != nil {
		return nil, origin, dest, err
	}
	if origin, err = rt.endpoint(ctx, queryFrom, queryFromAddress, "from"); err != nil {
		return nil, origin, dest, err
	}
	if dest, err = rt.endpoint(ctx, queryTo, queryToAddress, "to"); err != nil {
		return nil, origin, dest, err
	}
	return router, origin, dest, nil
}

func runQuery(cmd *cobra.Command, args []string) (err error) {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	start := time.Now()
	defer func() { recordCLIQuery(err, start) }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	router, origin, dest, err := loadRouter(ctx, rt)
	if err != nil {
		return err
	}

	tolerance := rt.cfg.Routing.DefaultTolerance
	if cmd.Flags().Changed("tolerance") {
		tolerance = queryTolerance
	}
	route, err := router.Route(ctx, routing.Query{Origin: origin, Destination: dest, Tolerance: tolerance})
	if err != nil {
		return err
	}

	if queryJSON {
		return writeJSON(cmd.OutOrStdout(), route)
	}
	printRoute(cmd.OutOrStdout(), route)
	return nil
}

func runCompare(cmd *cobra.Command, args []string) (err error) {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	start := time.Now()
	defer func() { recordCLIQuery(err, start) }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	router, origin, dest, err := loadRouter(ctx, rt)
	if err != nil {
		return err
	}

	routes, err := router.Compare(ctx, origin, dest, queryTolerances)
	if err != nil {
		return err
	}

	if queryJSON {
		return writeJSON(cmd.OutOrStdout(), routes)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-10s %12s %10s %8s\n", "TOLERANCE", "LENGTH (m)", "RISK", "NODES")
	for _, r := range routes {
		fmt.Fprintf(w, "%-10.2f %12.1f %10.0f %8d\n", r.Tolerance, r.LengthM, r.Risk, len(r.Nodes))
	}
	return nil
}

func recordCLIQuery(err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = string(routeerr.KindOf(err))
	}
	metrics.RecordQuery("cli", outcome, time.Since(start))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRoute(w io.Writer, r *routing.Route) {
	fmt.Fprintf(w, "Origin node:       %d (snapped %.1f m)\n", r.OriginNode, r.SnapDistanceM[0])
	fmt.Fprintf(w, "Destination node:  %d (snapped %.1f m)\n", r.DestinationNode, r.SnapDistanceM[1])
	fmt.Fprintf(w, "Tolerance:         %.2f\n", r.Tolerance)
	fmt.Fprintf(w, "Length:            %.1f m\n", r.LengthM)
	fmt.Fprintf(w, "Risk:              %.0f\n", r.Risk)
	fmt.Fprintf(w, "Segments:          %d\n", len(r.Segments))
	for _, s := range r.Segments {
		name := s.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "  %d -> %d  %-30s %8.1f m  risk %.0f\n", s.From, s.To, name, s.LengthM, s.Risk)
	}
}
