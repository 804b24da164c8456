// Package audit defines the decision authority's audit trail: every
// escalation decision and every committed phase transition becomes an
// immutable Record.
//
// The package splits along the record's lifecycle:
//
//   - recorder: asynchronous capture. Evaluation and transition paths
//     enqueue records on a bounded channel and never block on storage; a
//     background writer drains the channel and the recorder drains fully
//     on Close.
//   - storage: persistence backends behind the Storage interface. SQLite
//     (WAL journaling, busy timeout, versioned schema) for durable trails
//     and an in-memory store for tests and ephemeral runs.
//   - retention: scheduled pruning by age and by record count, with an
//     optional JSON archive written before deletion.
//   - export: JSON and CSV exporters over slices or record streams.
//
// Records carry a SHA-256 checksum over their canonical JSON form so
// exported trails can be verified field by field.
package audit
