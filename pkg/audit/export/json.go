package export

import (
	"context"
	"encoding/json"
	"io"

	"astraguard/aegis/pkg/audit"
)

// JSONExporter exports audit records to JSON.
type JSONExporter struct {
	// Pretty enables indented output.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{
		Pretty: pretty,
	}
}

// Export writes records to w as a JSON array. A single record is written as
// a bare object.
func (e *JSONExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	if len(records) == 0 {
		_, err := w.Write([]byte("[]"))
		return err
	}

	var data []byte
	var err error

	if len(records) == 1 {
		if e.Pretty {
			data, err = json.MarshalIndent(records[0], "", "  ")
		} else {
			data, err = json.Marshal(records[0])
		}
	} else {
		if e.Pretty {
			data, err = json.MarshalIndent(records, "", "  ")
		} else {
			data, err = json.Marshal(records)
		}
	}

	if err != nil {
		return audit.NewExportError("json", len(records), err)
	}

	if _, err = w.Write(data); err != nil {
		return audit.NewExportError("json", len(records), err)
	}

	return nil
}

// ExportStream writes records arriving on a channel to w as a JSON array.
// Records are serialized one at a time, so the full result set never needs
// to be held in memory.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *audit.Record, w io.Writer) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return audit.NewExportError("json", 0, err)
	}

	first := true
	recordCount := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				if _, err := w.Write([]byte("]")); err != nil {
					return audit.NewExportError("json", recordCount, err)
				}
				return nil
			}

			if !first {
				if _, err := w.Write([]byte(",")); err != nil {
					return audit.NewExportError("json", recordCount, err)
				}
				if e.Pretty {
					if _, err := w.Write([]byte("\n")); err != nil {
						return audit.NewExportError("json", recordCount, err)
					}
				}
			}
			first = false

			data, err := e.serializeRecord(record)
			if err != nil {
				return audit.NewExportError("json", recordCount, err)
			}

			if _, err := w.Write(data); err != nil {
				return audit.NewExportError("json", recordCount, err)
			}

			recordCount++
		}
	}
}

func (e *JSONExporter) serializeRecord(record *audit.Record) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(record, "  ", "  ")
	}
	return json.Marshal(record)
}
