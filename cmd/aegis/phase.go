package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"astraguard/aegis/pkg/cli"
	"astraguard/aegis/pkg/policy"
	"astraguard/aegis/pkg/server"
)

var phaseFlags struct {
	address string
	timeout time.Duration
	history bool
	format  string
}

var phaseCmd = &cobra.Command{
	Use:   "phase",
	Short: "Inspect the mission phase of a running instance",
	Long: `Inspect the mission phase state of a running Aegis instance.

Subcommands:
  show         - Show the current phase, optionally with transition history
  constraints  - Show the policy constraints of one phase or all phases

Examples:
  # Current phase
  aegis phase show

  # Current phase with the full transition history
  aegis phase show --history

  # Constraints of every phase
  aegis phase constraints

  # Constraints of one phase
  aegis phase constraints SAFE_MODE`,
}

var phaseShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current mission phase",
	RunE:  runPhaseShow,
}

var phaseConstraintsCmd = &cobra.Command{
	Use:   "constraints [PHASE]",
	Short: "Show phase policy constraints",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPhaseConstraints,
}

func init() {
	rootCmd.AddCommand(phaseCmd)
	phaseCmd.AddCommand(phaseShowCmd, phaseConstraintsCmd)

	phaseCmd.PersistentFlags().StringVar(&phaseFlags.address, "address", "", "instance address (default: from config)")
	phaseCmd.PersistentFlags().DurationVar(&phaseFlags.timeout, "timeout", 5*time.Second, "request timeout")
	phaseCmd.PersistentFlags().StringVar(&phaseFlags.format, "format", "text", "output format: text, json")

	phaseShowCmd.Flags().BoolVar(&phaseFlags.history, "history", false, "include transition history")
}

func runPhaseShow(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(phaseFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("unsupported output format %q (supported: text, json)", phaseFlags.format)
	}

	client := newAPIClient(resolveAddress(phaseFlags.address), phaseFlags.timeout)

	path := "/v1/phase"
	if phaseFlags.history {
		path += "?history=true"
	}

	var resp server.PhaseResponse
	if err := client.getJSON(cmd.Context(), path, &resp); err != nil {
		return cli.NewCommandError("phase show", err)
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, resp)
	}

	fmt.Printf("Current Phase: %s\n", resp.Phase)
	if phaseFlags.history {
		fmt.Printf("Transitions: %d\n", len(resp.Transitions))
		for _, tr := range resp.Transitions {
			line := fmt.Sprintf("  %s  %s -> %s  (%s)",
				tr.At.Format(time.RFC3339), tr.From, tr.To, tr.Reason)
			if tr.Recovery {
				line += fmt.Sprintf(" [recovery authorized by %s]", tr.AuthorizedBy)
			}
			fmt.Println(line)
		}
	}
	return nil
}

func runPhaseConstraints(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(phaseFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("unsupported output format %q (supported: text, json)", phaseFlags.format)
	}

	client := newAPIClient(resolveAddress(phaseFlags.address), phaseFlags.timeout)

	if len(args) == 1 {
		path := "/v1/phases/" + url.PathEscape(args[0]) + "/constraints"
		var constraints policy.PhaseConstraints
		if err := client.getJSON(cmd.Context(), path, &constraints); err != nil {
			return cli.NewCommandError("phase constraints", err)
		}
		if format == cli.FormatJSON {
			return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, constraints)
		}
		printConstraints(constraints, "")
		return nil
	}

	var resp server.PhaseListResponse
	if err := client.getJSON(cmd.Context(), "/v1/phases", &resp); err != nil {
		return cli.NewCommandError("phase constraints", err)
	}
	if format == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, resp)
	}

	fmt.Printf("Current Phase: %s\n\n", resp.Current)
	for i, constraints := range resp.Phases {
		if i > 0 {
			fmt.Println()
		}
		marker := ""
		if constraints.Phase == resp.Current {
			marker = " (current)"
		}
		printConstraints(constraints, marker)
	}
	return nil
}

func printConstraints(c policy.PhaseConstraints, marker string) {
	fmt.Printf("%s%s\n", c.Phase, marker)
	fmt.Printf("  %s\n", c.Description)
	fmt.Printf("  Threshold Multiplier: %.2f\n", c.ThresholdMultiplier)
	fmt.Printf("  Allowed Actions: %s\n", joinActions(c.AllowedActions))
	if len(c.ForbiddenActions) > 0 {
		fmt.Printf("  Forbidden Actions: %s\n", joinActions(c.ForbiddenActions))
	}
}

func joinActions(actions []policy.Action) string {
	if len(actions) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		parts = append(parts, string(a))
	}
	return strings.Join(parts, ", ")
}
