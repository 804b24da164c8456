/*
Package cli provides command-line interface utilities for AstraGuard Aegis.

The cli package includes output formatters, progress reporters, and common
CLI helpers used by the aegis command.

Output Formatting:

The cli package supports text and JSON output for displaying command
results. CSV rendering of audit records is data-specific and lives in
pkg/audit/export.

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, decision); err != nil {
		return err
	}

Progress Reporting:

For long-running operations such as audit exports, use the progress
reporter:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(totalRecords)
	for i := int64(0); i < totalRecords; i++ {
		// Export one record
		progress.Update(i + 1)
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown

Exit Codes:

Commands that report machine-readable outcomes through their exit code
(such as status) wrap the outcome in an ExitError; the root command
unwraps it and exits with the carried code.
*/
package cli
