package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"astraguard/aegis/pkg/audit"
)

// CSVExporter exports audit records to CSV.
type CSVExporter struct {
	// IncludeHeader writes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{
		IncludeHeader: includeHeader,
	}
}

// Export writes records to w in CSV format. The allowed actions list is
// flattened to a JSON array string.
func (e *CSVExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	return nil
}

// ExportStream writes records arriving on a channel to w in CSV format.
// The writer flushes every 100 records so long exports show progress.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return audit.NewExportError("csv", 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError("csv", recordCount, err)
				}
				return nil
			}

			if err := writer.Write(recordToRow(record)); err != nil {
				return audit.NewExportError("csv", recordCount, err)
			}

			recordCount++

			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return audit.NewExportError("csv", recordCount, err)
				}
			}
		}
	}
}

func headerRow() []string {
	return []string{
		"id", "kind", "recorded_at",
		"satellite_id", "request_id", "phase",
		"decision_id", "anomaly_type", "severity", "severity_score",
		"escalation", "is_allowed", "recommended_action", "allowed_actions",
		"confidence", "reasoning", "rule_fired", "evaluated_at",
		"from_phase", "to_phase", "reason", "recovery", "authorized_by", "committed_at",
		"checksum",
	}
}

func recordToRow(record *audit.Record) []string {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339)
	}

	formatJSON := func(v interface{}) string {
		data, _ := json.Marshal(v)
		return string(data)
	}

	return []string{
		record.ID,
		string(record.Kind),
		formatTime(record.RecordedAt),
		record.SatelliteID,
		record.RequestID,
		record.Phase,
		record.DecisionID,
		record.AnomalyType,
		record.Severity,
		fmt.Sprintf("%.4f", record.SeverityScore),
		record.Escalation,
		fmt.Sprintf("%t", record.IsAllowed),
		record.RecommendedAction,
		formatJSON(record.AllowedActions),
		fmt.Sprintf("%.4f", record.Confidence),
		record.Reasoning,
		record.RuleFired,
		formatTime(record.EvaluatedAt),
		record.FromPhase,
		record.ToPhase,
		record.Reason,
		fmt.Sprintf("%t", record.Recovery),
		record.AuthorizedBy,
		formatTime(record.CommittedAt),
		record.Checksum,
	}
}
