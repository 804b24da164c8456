// Package retention enforces retention policy on the audit trail.
//
// # Retention Policy
//
// The pruner deletes old audit records on a schedule:
//
//   - Configurable retention period in days
//   - Optional maximum record count, oldest deleted first
//   - Scheduled pruning via cron expression
//   - Optional JSON archive before deletion
//
// # Basic Usage
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays:       90,
//	    PruneSchedule:       "0 3 * * *",
//	    ArchiveBeforeDelete: true,
//	    ArchivePath:         "data/archives",
//	})
//
//	if err := pruner.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer pruner.Stop()
//
// # Manual Pruning
//
//	deleted, err := pruner.Prune(ctx)
//
// # Archiving
//
// With archiving enabled, doomed records are streamed into a timestamped
// JSON file under ArchivePath (audit-2026-01-15-030000.json) before the
// delete runs. A failed archive aborts the prune so records are never
// silently lost.
package retention
