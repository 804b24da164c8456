package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"astraguard/aegis/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "aegis",
	Short: "AstraGuard Aegis - mission phase decision authority",
	Long: `AstraGuard Aegis is the decision authority that governs autonomous
anomaly response on board and on the ground.

It evaluates anomaly signals against the active mission phase and produces
bounded, auditable escalation decisions:
  - Mission phase lifecycle with guarded transitions and authorized recovery
  - Phase-aware severity classification and escalation rules
  - Forbidden-action vetoes with safe downgrades
  - Persistent anomaly recurrence tracking
  - Tamper-evident decision and transition audit trail`,
	Version: Version,
}

// Execute runs the root command. Commands that encode their outcome in the
// process exit code (status) return a cli.ExitError; everything else exits
// with 1 on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "aegis.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
