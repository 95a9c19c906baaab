// Package cli wires the vitals commands together with cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flags
var (
	configPathFlag string
	debugFlag      bool
)

// rootCmd runs the dashboard when invoked without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "vitals",
	Short: "Terminal system monitor",
	Long: `vitals is an interactive terminal dashboard for CPU, memory, network,
disk, and process telemetry.

Graphs scale themselves to the data, the process table can be filtered
with a small query language, and processes can be signalled without
leaving the dashboard.

Examples:
  vitals
  vitals --rate 500ms
  vitals --tree
  vitals --filter "cpu > 50"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDashboard()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPathFlag, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging to stderr")
}

// Execute runs the root command and renders any failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
