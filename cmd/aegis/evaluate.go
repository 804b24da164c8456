package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"astraguard/aegis/pkg/cli"
	"astraguard/aegis/pkg/mission"
	"astraguard/aegis/pkg/policy"
	"astraguard/aegis/pkg/policy/engine"
	"astraguard/aegis/pkg/policy/engine/source"
)

var evaluateFlags struct {
	phase        string
	anomalyType  string
	score        float64
	recurrences  int
	simultaneous int
	subsystem    string
	policyFile   string
	format       string
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate one anomaly event locally",
	Long: `Evaluate a single anomaly event against the phase policies without a
running server.

The event is evaluated under the given mission phase using either the
built-in default policies or a policy file. The command prints the full
decision: severity classification, escalation level, recommended action,
any forbidden-action veto, confidence, and the reasoning trail.

Examples:
  # Evaluate a thermal fault during nominal operations
  aegis evaluate --phase NOMINAL_OPS --anomaly thermal_fault --score 0.75

  # A recurring fault that should escalate
  aegis evaluate --phase NOMINAL_OPS --anomaly power_fault --score 0.8 --recurrences 3

  # Against a custom policy document
  aegis evaluate --phase PAYLOAD_OPS --anomaly propulsion_fault --score 0.9 \
    --policy policies.yaml

  # JSON output for scripting
  aegis evaluate --phase SAFE_MODE --anomaly comms_fault --score 0.5 --format json`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evaluateFlags.phase, "phase", "", "mission phase to evaluate under (required)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.anomalyType, "anomaly", "", "anomaly type, e.g. thermal_fault (required)")
	evaluateCmd.Flags().Float64Var(&evaluateFlags.score, "score", 0, "severity score in [0,1]")
	evaluateCmd.Flags().IntVar(&evaluateFlags.recurrences, "recurrences", 0, "recent recurrence count of this anomaly type")
	evaluateCmd.Flags().IntVar(&evaluateFlags.simultaneous, "simultaneous", 0, "count of concurrently active distinct faults")
	evaluateCmd.Flags().StringVar(&evaluateFlags.subsystem, "subsystem", "", "affected subsystem tag")
	evaluateCmd.Flags().StringVar(&evaluateFlags.policyFile, "policy", "", "policy file (default: built-in policies)")
	evaluateCmd.Flags().StringVar(&evaluateFlags.format, "format", "text", "output format: text, json")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	if evaluateFlags.phase == "" {
		return fmt.Errorf("--phase must be specified")
	}
	if evaluateFlags.anomalyType == "" {
		return fmt.Errorf("--anomaly must be specified")
	}
	format, err := cli.ParseOutputFormat(evaluateFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("unsupported output format %q (supported: text, json)", evaluateFlags.format)
	}

	phase, err := mission.ParsePhase(evaluateFlags.phase)
	if err != nil {
		return err
	}

	// Local evaluations stay quiet unless --verbose is set.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	var policySource engine.Source
	if evaluateFlags.policyFile != "" {
		policySource = staticSource{source.NewFileSource(evaluateFlags.policyFile, logger)}
	} else {
		policySource = source.NewDefaultSource()
	}

	machine, err := mission.NewStateMachine(phase, logger)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	eng, err := engine.New(machine, policySource, logger)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}
	defer eng.Close()

	event := policy.AnomalyEvent{
		AnomalyType:   evaluateFlags.anomalyType,
		SeverityScore: evaluateFlags.score,
		Attributes: policy.EventAttributes{
			RecurrenceCount:    evaluateFlags.recurrences,
			SimultaneousFaults: evaluateFlags.simultaneous,
			Subsystem:          evaluateFlags.subsystem,
		},
	}

	decision, err := eng.Evaluate(cmd.Context(), phase, event)
	if err != nil {
		return cli.NewCommandError("evaluate", err)
	}

	if format == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, decision)
	}
	printDecision(os.Stdout, decision)
	return nil
}

func printDecision(w io.Writer, d policy.Decision) {
	fmt.Fprintf(w, "Decision ID: %s\n", d.ID)
	fmt.Fprintf(w, "Mission Phase: %s\n", d.MissionPhase)
	fmt.Fprintf(w, "Anomaly: %s (score %.2f)\n", d.AnomalyType, d.SeverityScore)
	fmt.Fprintf(w, "Severity: %s\n", d.Severity)
	fmt.Fprintf(w, "Escalation: %s\n", d.Escalation)
	fmt.Fprintf(w, "Recommended Action: %s\n", d.RecommendedAction)
	if d.VetoedAction != "" {
		fmt.Fprintf(w, "Vetoed Action: %s (forbidden in this phase)\n", d.VetoedAction)
	}
	if d.IsAllowed {
		fmt.Fprintln(w, "Autonomous Execution: allowed")
	} else {
		fmt.Fprintln(w, "Autonomous Execution: not allowed")
	}
	fmt.Fprintf(w, "Confidence: %.2f\n", d.Confidence)
	fmt.Fprintf(w, "Rule Fired: %s\n", d.RuleFired)
	fmt.Fprintf(w, "Reasoning: %s\n", d.Reasoning)

	actions := make([]string, 0, len(d.AllowedActions))
	for _, a := range d.AllowedActions {
		actions = append(actions, string(a))
	}
	fmt.Fprintf(w, "Allowed Actions: %s\n", strings.Join(actions, ", "))
}
