// Package daemon coordinates the long-running telex process.
//
// The Supervisor wires configuration, the two in-memory queues, the outcome
// journal and the three pipeline workers into a single lifecycle with
// flock-based locking to prevent multiple instances. Workers run in one
// errgroup; cancelling the context stops them between items, after which the
// queues are closed and a final state summary is logged.
//
// Keep orchestration logic here: the worker loops live in watcher,
// extraction and dispatch while the daemon focuses on startup, shutdown and
// status.
package daemon
