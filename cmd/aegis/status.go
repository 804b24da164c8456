package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"astraguard/aegis/pkg/cli"
	"astraguard/aegis/pkg/server"
	"astraguard/aegis/pkg/telemetry/health"
)

// Exit codes reported by the status command, for scripts and orchestrators.
const (
	exitHealthy  = 0
	exitFailed   = 1
	exitDegraded = 2
)

var statusFlags struct {
	address string
	timeout time.Duration
	format  string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check a running instance",
	Long: `Check the health of a running Aegis instance.

The command queries the readiness, version, and phase endpoints and reports
the aggregate state. The exit code encodes the outcome:

  0  healthy: every component check passed
  2  degraded: the instance is up but a component check failed
  1  failed: the instance is unreachable or unhealthy

Examples:
  # Check the instance from the local config
  aegis status

  # Check a remote instance
  aegis status --address 10.0.3.7:8085

  # JSON output for monitoring scripts
  aegis status --format json`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusFlags.address, "address", "", "instance address (default: from config)")
	statusCmd.Flags().DurationVar(&statusFlags.timeout, "timeout", 5*time.Second, "request timeout")
	statusCmd.Flags().StringVar(&statusFlags.format, "format", "text", "output format: text, json")
}

// statusReport is the combined status output. Phase is carried as its wire
// name; empty when the phase endpoint was not reachable.
type statusReport struct {
	Address string             `json:"address"`
	Version health.VersionInfo `json:"version"`
	Phase   string             `json:"phase,omitempty"`
	Report  health.Report      `json:"report"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(statusFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("unsupported output format %q (supported: text, json)", statusFlags.format)
	}

	address := resolveAddress(statusFlags.address)
	client := newAPIClient(address, statusFlags.timeout)

	report, err := fetchReadiness(cmd.Context(), client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Aegis is not reachable at %s\n", address)
		return cli.NewExitError(exitFailed, err)
	}

	// Version and phase are informational; the exit code depends only on
	// the readiness report.
	combined := statusReport{Address: address, Report: report}
	_ = client.getJSON(cmd.Context(), "/version", &combined.Version)

	var phaseResp server.PhaseResponse
	if err := client.getJSON(cmd.Context(), "/v1/phase", &phaseResp); err == nil {
		combined.Phase = phaseResp.Phase.String()
	}

	if format == cli.FormatJSON {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, combined); err != nil {
			return err
		}
	} else {
		printStatus(combined)
	}

	switch report.Status {
	case health.StatusReady, health.StatusOK:
		return nil
	case health.StatusDegraded:
		return cli.NewExitError(exitDegraded, errors.New("authority degraded"))
	default:
		return cli.NewExitError(exitFailed, fmt.Errorf("authority unhealthy: status %q", report.Status))
	}
}

// fetchReadiness reads /ready directly: a degraded instance answers 503
// with the same report body, which the generic JSON helper would discard
// as an error.
func fetchReadiness(ctx context.Context, client *apiClient) (health.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.baseURL+"/ready", nil)
	if err != nil {
		return health.Report{}, err
	}

	resp, err := client.client.Do(req)
	if err != nil {
		return health.Report{}, err
	}
	defer resp.Body.Close()

	var report health.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return health.Report{}, fmt.Errorf("failed to decode readiness report: %w", err)
	}
	return report, nil
}

func printStatus(s statusReport) {
	fmt.Printf("AstraGuard Aegis at %s\n", s.Address)
	if s.Version.Version != "" {
		fmt.Printf("Version: %s (commit %s)\n", s.Version.Version, s.Version.Commit)
	}
	if s.Phase != "" {
		fmt.Printf("Current Phase: %s\n", s.Phase)
	}
	fmt.Printf("Status: %s\n", s.Report.Status)

	if len(s.Report.Checks) == 0 {
		return
	}

	names := make([]string, 0, len(s.Report.Checks))
	for name := range s.Report.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nChecks:")
	for _, name := range names {
		check := s.Report.Checks[name]
		if check.Status == health.StatusOK {
			fmt.Printf("  ✓ %-10s %s (%.1fms)\n", name, check.Status, check.DurationMS)
		} else {
			fmt.Printf("  ✗ %-10s %s: %s (%.1fms)\n", name, check.Status, check.Message, check.DurationMS)
		}
	}
}
