package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"astraguard/aegis/pkg/audit"
)

func createTestRecord(id string) *audit.Record {
	return &audit.Record{
		ID:                id,
		Kind:              audit.KindDecision,
		RecordedAt:        time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		SatelliteID:       "AST-001",
		RequestID:         "req-" + id,
		Phase:             "NOMINAL_OPS",
		DecisionID:        "dec-" + id,
		AnomalyType:       "THERMAL_RUNAWAY",
		Severity:          "HIGH",
		SeverityScore:     0.85,
		Escalation:        "CONTROLLED_ACTION",
		IsAllowed:         true,
		RecommendedAction: "ADJUST_ATTITUDE",
		AllowedActions:    []string{"ADJUST_ATTITUDE", "LOG_EVENT"},
		Confidence:        0.92,
		Reasoning:         "high severity thermal anomaly",
		RuleFired:         "high-severity-controlled-action",
		EvaluatedAt:       time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
}

func streamOf(records ...*audit.Record) <-chan *audit.Record {
	ch := make(chan *audit.Record, len(records))
	for _, r := range records {
		ch <- r
	}
	close(ch)
	return ch
}

func TestJSONExporter_Export_EmptyRecords(t *testing.T) {
	exporter := NewJSONExporter(false)
	var buf bytes.Buffer

	if err := exporter.Export(context.Background(), []*audit.Record{}, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if buf.String() != "[]" {
		t.Errorf("Export() = %q, want %q", buf.String(), "[]")
	}
}

func TestJSONExporter_Export_SingleRecord(t *testing.T) {
	record := createTestRecord("rec-1")
	exporter := NewJSONExporter(false)
	var buf bytes.Buffer

	if err := exporter.Export(context.Background(), []*audit.Record{record}, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var decoded audit.Record
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}

	if decoded.ID != "rec-1" {
		t.Errorf("Decoded ID = %v, want %v", decoded.ID, "rec-1")
	}
	if decoded.AnomalyType != "THERMAL_RUNAWAY" {
		t.Errorf("Decoded AnomalyType = %v, want THERMAL_RUNAWAY", decoded.AnomalyType)
	}
	if len(decoded.AllowedActions) != 2 {
		t.Errorf("Decoded AllowedActions length = %d, want 2", len(decoded.AllowedActions))
	}
}

func TestJSONExporter_Export_MultipleRecords(t *testing.T) {
	records := []*audit.Record{
		createTestRecord("rec-1"),
		createTestRecord("rec-2"),
		createTestRecord("rec-3"),
	}

	exporter := NewJSONExporter(false)
	var buf bytes.Buffer

	if err := exporter.Export(context.Background(), records, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var decoded []*audit.Record
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}

	if len(decoded) != 3 {
		t.Fatalf("Decoded length = %d, want 3", len(decoded))
	}

	for i, record := range records {
		if decoded[i].ID != record.ID {
			t.Errorf("Decoded[%d].ID = %v, want %v", i, decoded[i].ID, record.ID)
		}
	}
}

func TestJSONExporter_Export_PrettyPrint(t *testing.T) {
	record := createTestRecord("rec-1")
	exporter := NewJSONExporter(true)
	var buf bytes.Buffer

	if err := exporter.Export(context.Background(), []*audit.Record{record}, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "\n") {
		t.Error("Pretty-printed JSON missing newlines")
	}
	if !strings.Contains(output, "  ") {
		t.Error("Pretty-printed JSON missing indentation")
	}

	var decoded audit.Record
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to decode pretty-printed JSON: %v", err)
	}
}

func TestJSONExporter_ExportStream(t *testing.T) {
	records := []*audit.Record{
		createTestRecord("rec-1"),
		createTestRecord("rec-2"),
	}

	exporter := NewJSONExporter(false)
	var buf bytes.Buffer

	if err := exporter.ExportStream(context.Background(), streamOf(records...), &buf); err != nil {
		t.Fatalf("ExportStream() error = %v", err)
	}

	var decoded []*audit.Record
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Failed to decode streamed JSON: %v", err)
	}

	if len(decoded) != 2 {
		t.Errorf("Decoded length = %d, want 2", len(decoded))
	}
}

func TestJSONExporter_ExportStream_Empty(t *testing.T) {
	exporter := NewJSONExporter(false)
	var buf bytes.Buffer

	if err := exporter.ExportStream(context.Background(), streamOf(), &buf); err != nil {
		t.Fatalf("ExportStream() error = %v", err)
	}

	if buf.String() != "[]" {
		t.Errorf("ExportStream() = %q, want %q", buf.String(), "[]")
	}
}

func TestJSONExporter_ExportStream_Cancelled(t *testing.T) {
	exporter := NewJSONExporter(false)
	var buf bytes.Buffer

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// An open channel with no records keeps the exporter waiting until the
	// context fires.
	ch := make(chan *audit.Record)

	err := exporter.ExportStream(ctx, ch, &buf)
	if err == nil {
		t.Fatal("Expected context error, got nil")
	}
}

func TestCSVExporter_Export_WithHeader(t *testing.T) {
	records := []*audit.Record{
		createTestRecord("rec-1"),
		createTestRecord("rec-2"),
	}

	exporter := NewCSVExporter(true)
	var buf bytes.Buffer

	if err := exporter.Export(context.Background(), records, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	reader := csv.NewReader(&buf)
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}

	// Header plus two data rows.
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	if rows[0][0] != "id" || rows[0][1] != "kind" {
		t.Errorf("Unexpected header: %v", rows[0][:2])
	}
	if rows[1][0] != "rec-1" {
		t.Errorf("Expected first data row 'rec-1', got '%s'", rows[1][0])
	}

	if len(rows[0]) != len(rows[1]) {
		t.Errorf("Header has %d columns, data row has %d", len(rows[0]), len(rows[1]))
	}
}

func TestCSVExporter_Export_WithoutHeader(t *testing.T) {
	exporter := NewCSVExporter(false)
	var buf bytes.Buffer

	if err := exporter.Export(context.Background(), []*audit.Record{createTestRecord("rec-1")}, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	reader := csv.NewReader(&buf)
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}

	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0][0] != "rec-1" {
		t.Errorf("Expected 'rec-1', got '%s'", rows[0][0])
	}
}

func TestCSVExporter_Export_EscapesFields(t *testing.T) {
	record := createTestRecord("rec-1")
	record.Reasoning = `severity above threshold, phase is "critical"`

	exporter := NewCSVExporter(true)
	var buf bytes.Buffer

	if err := exporter.Export(context.Background(), []*audit.Record{record}, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	reader := csv.NewReader(&buf)
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV with quoted fields: %v", err)
	}

	// Reasoning is the 16th column.
	if rows[1][15] != record.Reasoning {
		t.Errorf("Reasoning not preserved: got %q", rows[1][15])
	}
}

func TestCSVExporter_ExportStream(t *testing.T) {
	var records []*audit.Record
	for i := 0; i < 250; i++ {
		records = append(records, createTestRecord(fmt.Sprintf("rec-%d", i)))
	}

	exporter := NewCSVExporter(true)
	var buf bytes.Buffer

	if err := exporter.ExportStream(context.Background(), streamOf(records...), &buf); err != nil {
		t.Fatalf("ExportStream() error = %v", err)
	}

	reader := csv.NewReader(&buf)
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}

	if len(rows) != 251 {
		t.Errorf("Expected 251 rows (header + 250), got %d", len(rows))
	}
}
