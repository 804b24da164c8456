package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"astraguard/aegis/pkg/audit"
	"astraguard/aegis/pkg/audit/export"
	"astraguard/aegis/pkg/audit/storage"
	"astraguard/aegis/pkg/cli"
	"astraguard/aegis/pkg/config"
	"astraguard/aegis/pkg/mission"
)

var auditFlags struct {
	backend     string
	kind        string
	phase       string
	anomalyType string
	escalation  string
	satelliteID string
	ruleFired   string
	timeRange   string
	limit       int
	offset      int
	sortOrder   string
	format      string
	output      string
	verify      bool
	pretty      bool
	noHeader    bool
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	Long: `Query and export the decision and transition audit trail.

The audit command reads the audit storage directly, so it works without a
running server. Records carry a SHA-256 checksum sealed at write time;
--verify recomputes it to detect tampering.

Subcommands:
  query   - Query audit records with filters
  export  - Export matching records as JSON or CSV

Examples:
  # Most recent decisions
  aegis audit query --kind decision

  # Decisions for one satellite inside a time window
  aegis audit query --satellite AST-042 \
    --time-range "2026-08-24T00:00:00Z/2026-08-25T00:00:00Z"

  # Export a day of records to CSV
  aegis audit export --format csv --output audit.csv \
    --time-range "2026-08-24T00:00:00Z/2026-08-25T00:00:00Z"`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit records",
	Long: `Query audit records with various filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2026-08-24T00:00:00Z/2026-08-25T00:00:00Z"

Examples:
  # Query decisions made in SAFE_MODE
  aegis audit query --kind decision --phase SAFE_MODE

  # Recurring thermal faults, oldest first
  aegis audit query --anomaly-type thermal_fault --sort asc

  # Verify record checksums
  aegis audit query --kind decision --verify`,
	RunE: runAuditQuery,
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit records",
	Long: `Export matching audit records as JSON or CSV.

Records stream from storage, so exports of large trails do not hold the
full result set in memory. A limit of 0 exports every matching record.

Examples:
  # Everything, as JSON, to stdout
  aegis audit export --limit 0

  # One satellite's decisions to a CSV file
  aegis audit export --format csv --satellite AST-042 --output ast-042.csv`,
	RunE: runAuditExport,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd, auditExportCmd)

	for _, cmd := range []*cobra.Command{auditQueryCmd, auditExportCmd} {
		cmd.Flags().StringVar(&auditFlags.backend, "backend", "", "backend: sqlite, memory (uses config if not specified)")
		cmd.Flags().StringVar(&auditFlags.kind, "kind", "", "filter by record kind (decision, transition)")
		cmd.Flags().StringVar(&auditFlags.phase, "phase", "", "filter by mission phase")
		cmd.Flags().StringVar(&auditFlags.anomalyType, "anomaly-type", "", "filter by anomaly type")
		cmd.Flags().StringVar(&auditFlags.escalation, "escalation", "", "filter by escalation level")
		cmd.Flags().StringVar(&auditFlags.satelliteID, "satellite", "", "filter by satellite ID")
		cmd.Flags().StringVar(&auditFlags.ruleFired, "rule", "", "filter by resolver rule")
		cmd.Flags().StringVar(&auditFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
		cmd.Flags().IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
		cmd.Flags().StringVar(&auditFlags.sortOrder, "sort", "", "sort order by time: asc, desc (default desc)")
		cmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")
	}

	auditQueryCmd.Flags().IntVar(&auditFlags.limit, "limit", 0, "max results (default: from config)")
	auditQueryCmd.Flags().StringVar(&auditFlags.format, "format", "text", "output format: text, json")
	auditQueryCmd.Flags().BoolVar(&auditFlags.verify, "verify", false, "verify record checksums")

	auditExportCmd.Flags().IntVar(&auditFlags.limit, "limit", 0, "max records (0: all matching)")
	auditExportCmd.Flags().StringVar(&auditFlags.format, "format", "json", "output format: json, csv")
	auditExportCmd.Flags().BoolVar(&auditFlags.pretty, "pretty", false, "indent JSON output")
	auditExportCmd.Flags().BoolVar(&auditFlags.noHeader, "no-header", false, "omit the CSV header row")
}

// openAuditStore opens the audit storage selected by flag or config.
func openAuditStore() (audit.Storage, *config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.Active()

	backendType := auditFlags.backend
	if backendType == "" {
		backendType = cfg.Audit.Backend
	}

	switch backendType {
	case "sqlite":
		store, err := storage.NewSQLiteStorage(storage.SQLiteFromConfig(cfg.Audit.SQLite))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open audit database: %w", err)
		}
		return store, cfg, nil
	case "memory":
		return storage.NewMemoryStorage(), cfg, nil
	default:
		return nil, nil, fmt.Errorf("unsupported backend: %s (supported: sqlite, memory)", backendType)
	}
}

// buildAuditQuery converts the shared filter flags into a validated query.
// A zero defaultLimit keeps an unset --limit at 0, which both backends treat
// as unbounded; a zero maxLimit disables the cap.
func buildAuditQuery(defaultLimit, maxLimit int) (*audit.Query, error) {
	query := &audit.Query{
		Kind:        audit.RecordKind(auditFlags.kind),
		AnomalyType: auditFlags.anomalyType,
		Escalation:  auditFlags.escalation,
		SatelliteID: auditFlags.satelliteID,
		RuleFired:   auditFlags.ruleFired,
		Limit:       auditFlags.limit,
		Offset:      auditFlags.offset,
		SortOrder:   auditFlags.sortOrder,
	}

	if auditFlags.phase != "" {
		phase, err := mission.ParsePhase(auditFlags.phase)
		if err != nil {
			return nil, err
		}
		query.Phase = phase.String()
	}

	if auditFlags.timeRange != "" {
		parts := strings.Split(auditFlags.timeRange, "/")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid time range format (expected: start/end)")
		}

		startTime, err := time.Parse(time.RFC3339, parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid start time: %w", err)
		}
		query.StartTime = &startTime

		endTime, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid end time: %w", err)
		}
		query.EndTime = &endTime
	}

	audit.ApplyQueryDefaults(query, defaultLimit)

	if err := audit.ValidateQuery(query, maxLimit); err != nil {
		return nil, err
	}
	return query, nil
}

func openOutput() (*os.File, func(), error) {
	if auditFlags.output == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(auditFlags.output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(auditFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("unsupported output format %q for query (use audit export for CSV)", auditFlags.format)
	}

	store, cfg, err := openAuditStore()
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}
	defer store.Close()

	query, err := buildAuditQuery(cfg.Audit.Query.DefaultLimit, cfg.Audit.Query.MaxLimit)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}

	records, err := store.Query(cmd.Context(), query)
	if err != nil {
		return cli.NewCommandError("audit query", fmt.Errorf("query failed: %w", err))
	}

	output, closeOutput, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOutput()

	if format == cli.FormatJSON {
		result := map[string]interface{}{
			"total_records": len(records),
			"records":       records,
		}
		if auditFlags.verify {
			result["checksum_failures"] = verifyRecords(records)
		}
		return cli.NewFormatter(cli.FormatJSON).FormatTo(output, result)
	}

	printAuditRecords(output, records, query)
	if auditFlags.verify {
		failures := verifyRecords(records)
		fmt.Fprintln(output)
		if len(failures) == 0 {
			fmt.Fprintf(output, "✓ Checksums: %d/%d valid\n", len(records), len(records))
		} else {
			fmt.Fprintf(output, "✗ Checksums: %d/%d valid\n", len(records)-len(failures), len(records))
			for _, id := range failures {
				fmt.Fprintf(output, "  tampered or unsealed record: %s\n", id)
			}
			return cli.NewCommandError("audit query", fmt.Errorf("%d record(s) failed checksum verification", len(failures)))
		}
	}
	return nil
}

// verifyRecords returns the IDs of records whose stored checksum does not
// match their contents.
func verifyRecords(records []*audit.Record) []string {
	var failures []string
	for _, record := range records {
		if !record.Verify() {
			failures = append(failures, record.ID)
		}
	}
	return failures
}

func printAuditRecords(output io.Writer, records []*audit.Record, query *audit.Query) {
	if query.StartTime != nil && query.EndTime != nil {
		fmt.Fprintf(output, "Time range: %s to %s\n",
			query.StartTime.Format(time.RFC3339),
			query.EndTime.Format(time.RFC3339))
	}
	fmt.Fprintf(output, "Total records: %d\n", len(records))
	fmt.Fprintln(output)

	if len(records) == 0 {
		fmt.Fprintln(output, "No records found.")
		return
	}

	for i, record := range records {
		if i > 0 {
			fmt.Fprintln(output)
		}

		fmt.Fprintf(output, "Record ID: %s\n", record.ID)
		fmt.Fprintf(output, "Kind: %s\n", record.Kind)
		fmt.Fprintf(output, "Recorded: %s\n", record.RecordedAt.Format(time.RFC3339))
		fmt.Fprintf(output, "Phase: %s\n", record.Phase)
		if record.SatelliteID != "" {
			fmt.Fprintf(output, "Satellite: %s\n", record.SatelliteID)
		}

		switch record.Kind {
		case audit.KindDecision:
			fmt.Fprintf(output, "Anomaly: %s (score %.2f, severity %s)\n",
				record.AnomalyType, record.SeverityScore, record.Severity)
			fmt.Fprintf(output, "Escalation: %s\n", record.Escalation)
			fmt.Fprintf(output, "Recommended Action: %s (allowed: %t)\n",
				record.RecommendedAction, record.IsAllowed)
			fmt.Fprintf(output, "Rule Fired: %s\n", record.RuleFired)
		case audit.KindTransition:
			fmt.Fprintf(output, "Transition: %s -> %s\n", record.FromPhase, record.ToPhase)
			fmt.Fprintf(output, "Reason: %s\n", record.Reason)
			if record.Recovery {
				fmt.Fprintf(output, "Recovery authorized by: %s\n", record.AuthorizedBy)
			}
		}

		// Show limited output for large result sets
		if i >= 9 && len(records) > 10 {
			remaining := len(records) - 10
			fmt.Fprintln(output)
			fmt.Fprintf(output, "... and %d more records\n", remaining)
			fmt.Fprintf(output, "Use --limit and --offset for pagination.\n")
			break
		}
	}
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(auditFlags.format)
	if err != nil {
		return err
	}
	if format == cli.FormatText {
		return fmt.Errorf("unsupported output format %q for export (supported: json, csv)", auditFlags.format)
	}

	store, _, err := openAuditStore()
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}
	defer store.Close()

	// Exports default to everything matching; the configured API query cap
	// does not bind direct storage access.
	query, err := buildAuditQuery(0, 0)
	if err != nil {
		return cli.NewCommandError("audit export", err)
	}

	var exporter audit.Exporter
	switch format {
	case cli.FormatCSV:
		exporter = export.NewCSVExporter(!auditFlags.noHeader)
	default:
		exporter = export.NewJSONExporter(auditFlags.pretty)
	}

	output, closeOutput, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOutput()

	ctx := cmd.Context()
	recordsCh, errCh, err := store.QueryStream(ctx, query)
	if err != nil {
		return cli.NewCommandError("audit export", fmt.Errorf("query failed: %w", err))
	}

	// Progress goes to stderr, and only for file exports, so piped output
	// stays clean.
	var exported int64
	streamCh := recordsCh
	var reporter cli.ProgressReporter
	if auditFlags.output != "" {
		total, countErr := store.Count(ctx, query)
		if countErr == nil && total > 0 {
			if query.Limit > 0 && int64(query.Limit) < total {
				total = int64(query.Limit)
			}
			reporter = cli.NewProgressReporter(os.Stderr)
			reporter.Start(total)

			counted := make(chan *audit.Record)
			go func() {
				defer close(counted)
				for record := range recordsCh {
					exported++
					reporter.Update(exported)
					counted <- record
				}
			}()
			streamCh = counted
		}
	}

	if err := exporter.ExportStream(ctx, streamCh, output); err != nil {
		if reporter != nil {
			reporter.Error(err)
		}
		return cli.NewCommandError("audit export", fmt.Errorf("export failed: %w", err))
	}
	if err := <-errCh; err != nil {
		if reporter != nil {
			reporter.Error(err)
		}
		return cli.NewCommandError("audit export", fmt.Errorf("export failed: %w", err))
	}
	if reporter != nil {
		reporter.Finish()
		fmt.Fprintf(os.Stderr, "✓ Exported %d records to %s\n", exported, auditFlags.output)
	}
	return nil
}
