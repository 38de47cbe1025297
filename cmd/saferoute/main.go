// Command saferoute precomputes risk-annotated road graphs and answers
// risk-aware route queries from the command line or over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohamedthameursassi/saferoute/routeerr"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "saferoute",
	Short: "Risk-aware road routing",
	Long: `saferoute scores road segments by nearby historical incidents and finds
routes that trade distance against risk.

Typical flow:
  saferoute precompute --network osm.json --incidents accidents.csv --out graph.gob
  saferoute query --graph graph.gob --from 45.50,-73.57 --to 45.52,-73.55 --tolerance 0.7
  saferoute serve --config saferoute.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(precomputeCmd, queryCmd, compareCmd, inspectCmd, incidentsCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode lets scripts tell a missing route apart from a failure.
func exitCode(err error) int {
	switch routeerr.KindOf(err) {
	case routeerr.NoPathFound:
		return 3
	case routeerr.UnresolvableEndpoint:
		return 4
	case routeerr.InvalidInput:
		return 2
	default:
		return 1
	}
}
