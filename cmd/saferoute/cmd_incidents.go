package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohamedthameursassi/saferoute/incidents"
)

var (
	statsIncidents string
	statsSince     string
	statsUntil     string
	statsJSON      bool
)

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "Work with incident data",
}

var incidentsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Break incidents down by hour, weather and day or night",
	Long: `Load an incident CSV and report when and under which conditions incidents
happen: counts per hour of the day and the riskiest hour, counts and mean
severity per weather condition, and day versus night counts.

Examples:
  saferoute incidents stats --incidents accidents.csv
  saferoute incidents stats --incidents accidents.csv --since 2022-01-01 --json`,
	RunE: runIncidentsStats,
}

func init() {
	f := incidentsStatsCmd.Flags()
	f.StringVar(&statsIncidents, "incidents", "", "incident CSV (required)")
	f.StringVar(&statsSince, "since", "", "ignore incidents before this time")
	f.StringVar(&statsUntil, "until", "", "ignore incidents after this time")
	f.BoolVar(&statsJSON, "json", false, "print JSON")
	_ = incidentsStatsCmd.MarkFlagRequired("incidents")

	incidentsCmd.AddCommand(incidentsStatsCmd)
}

func runIncidentsStats(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.close()

	since, err := parseTime(statsSince)
	if err != nil {
		return err
	}
	until, err := parseTime(statsUntil)
	if err != nil {
		return err
	}

	incs, stats, err := incidents.LoadFile(statsIncidents, incidents.LoadOptions{Since: since, Until: until})
	if err != nil {
		return err
	}
	rt.logger.Info("incidents loaded",
		zap.String("path", statsIncidents),
		zap.Int("rows", stats.Rows),
		zap.Int("loaded", stats.Loaded),
	)

	a := incidents.Analyze(incs)
	if statsJSON {
		return writeJSON(cmd.OutOrStdout(), a)
	}
	printAnalysis(cmd.OutOrStdout(), a)
	return nil
}

func printAnalysis(w io.Writer, a incidents.Analysis) {
	fmt.Fprintf(w, "Incidents:       %d (%d with a time)\n", a.Incidents, a.WithTimestamp)

	fmt.Fprintln(w, "\nBy hour:")
	for _, h := range a.ByHour {
		fmt.Fprintf(w, "  %02d:00  %6d\n", h.Hour, h.Count)
	}
	if a.RiskiestHour != nil {
		fmt.Fprintf(w, "Riskiest hour:   %02d:00\n", *a.RiskiestHour)
	} else {
		fmt.Fprintln(w, "Riskiest hour:   (no timestamps)")
	}

	fmt.Fprintln(w, "\nBy weather:")
	fmt.Fprintf(w, "  %-30s %8s %13s\n", "CONDITION", "COUNT", "MEAN SEVERITY")
	for _, ws := range a.ByWeather {
		fmt.Fprintf(w, "  %-30s %8d %13.2f\n", ws.Condition, ws.Count, ws.MeanSeverity)
	}

	fmt.Fprintln(w, "\nDay vs night:")
	if len(a.ByDayNight) == 0 {
		fmt.Fprintln(w, "  (no sunrise/sunset data)")
	}
	for _, p := range a.ByDayNight {
		fmt.Fprintf(w, "  %-8s %8d\n", p.Period, p.Count)
	}
}
