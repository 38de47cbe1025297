package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohamedthameursassi/saferoute/graphstore"
	"github.com/mohamedthameursassi/saferoute/roadgraph"
)

var (
	inspectSnapshot snapshotFlags
	inspectList     bool
	inspectJSON     bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show what a graph snapshot contains",
	Long: `Print the metadata of a snapshot and statistics about its risk annotation.

Examples:
  saferoute inspect --graph montreal.gob
  saferoute inspect --store ./db --area montreal --json
  saferoute inspect --store ./db --list`,
	RunE: runInspect,
}

func init() {
	f := inspectCmd.Flags()
	f.StringVar(&inspectSnapshot.graphPath, "graph", "", "snapshot file")
	f.StringVar(&inspectSnapshot.storePath, "store", "", "badger store directory")
	f.StringVar(&inspectSnapshot.area, "area", "", "area to read from the store")
	f.BoolVar(&inspectList, "list", false, "list the areas held by --store")
	f.BoolVar(&inspectJSON, "json", false, "print JSON")
}

type inspectReport struct {
	Meta  graphstore.Meta `json:"meta"`
	Stats roadgraph.Stats `json:"stats"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()
	w := cmd.OutOrStdout()

	if inspectList {
		flags := inspectSnapshot.withDefaults(rt.cfg)
		store, err := graphstore.OpenBadger(graphstore.BadgerConfig{Path: flags.storePath, Logger: rt.logger})
		if err != nil {
			return err
		}
		defer store.Close()
		areas, err := store.List()
		if err != nil {
			return err
		}
		if inspectJSON {
			return writeJSON(w, areas)
		}
		for _, a := range areas {
			fmt.Fprintln(w, a)
		}
		return nil
	}

	g, meta, err := inspectSnapshot.load(rt)
	if err != nil {
		return err
	}
	report := inspectReport{Meta: meta, Stats: roadgraph.Summarize(g)}
	if inspectJSON {
		return writeJSON(w, report)
	}

	s := report.Stats
	fmt.Fprintf(w, "Area:            %s\n", meta.Area)
	fmt.Fprintf(w, "Created:         %s\n", meta.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Radius:          %.0f m\n", meta.Radius)
	if meta.SampleSpacing > 0 {
		fmt.Fprintf(w, "Sample spacing:  %.0f m\n", meta.SampleSpacing)
	}
	fmt.Fprintf(w, "Incidents:       %d\n", meta.Incidents)
	fmt.Fprintf(w, "Nodes:           %d\n", s.Nodes)
	fmt.Fprintf(w, "Edges:           %d\n", s.Edges)
	fmt.Fprintf(w, "Network length:  %.1f km\n", s.TotalLengthM/1000)
	fmt.Fprintf(w, "Risky edges:     %d\n", s.RiskyEdges)
	fmt.Fprintf(w, "Risk mean/sd:    %.2f / %.2f\n", s.MeanRisk, s.StdDevRisk)
	fmt.Fprintf(w, "Risk p95/max:    %.0f / %.0f\n", s.P95Risk, s.MaxRisk)
	return nil
}
