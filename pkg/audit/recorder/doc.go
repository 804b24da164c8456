// Package recorder captures audit records without blocking the decision
// path.
//
// Records are sealed (checksummed) and offered to a bounded channel; when
// the channel is full the record is dropped and counted instead of making
// the caller wait on storage. A single background worker drains the
// channel, writing each record under a per-write timeout. Close drains
// the remaining buffer before returning, so a graceful shutdown loses no
// accepted records.
package recorder
