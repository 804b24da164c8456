// Package export provides audit record exporters.
//
// # Export Formats
//
//   - JSON: single record or array, with optional pretty-printing
//   - CSV: flattened schema with header row and proper escaping
//
// # JSON Export
//
//	exporter := export.NewJSONExporter(true)
//	if err := exporter.Export(ctx, records, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
//
// # CSV Export
//
//	exporter := export.NewCSVExporter(true)
//	f, _ := os.Create("audit.csv")
//	defer f.Close()
//	if err := exporter.Export(ctx, records, f); err != nil {
//	    log.Fatal(err)
//	}
//
// # Streaming
//
// Both exporters also accept a record channel via ExportStream, letting the
// retention pruner and the CLI export large result sets without loading the
// whole set into memory.
//
// Exporters return ExportError on encoding or writer failures.
package export
