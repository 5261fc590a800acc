// Package journal persists the outcome of every processed document in a
// SQLite database under the log directory.
//
// The journal is an append-only history: one row per notable event
// (extracted, delivered, failures). It never gates the pipeline; workers
// record best-effort and continue when a write fails. Retention pruning keeps
// the database bounded.
package journal
