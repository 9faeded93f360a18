// Command orchestratorctl is a thin bus client for the fleet
// orchestrator: it carries none of the core's orchestration logic,
// only ordinary method calls and signal subscriptions against the
// public facade.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var busName string

var rootCmd = &cobra.Command{
	Use:     "orchestratorctl",
	Short:   "Query and drive the fleet orchestrator over the bus",
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&busName, "bus-name", "org.fleetkit.Orchestrator", "well-known bus name of the orchestrator")
	rootCmd.AddCommand(isolateCmd, jobsCmd, nodesCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
