// Package logging assembles structured slog loggers and formatting helpers used
// across telex.
//
// It owns the console/JSON handlers, centralizes level and output plumbing
// (including size-based rotation of the daemon log file), and exposes
// context-aware helpers so worker code can tag log lines with document IDs,
// stage names, and source paths. The package also provides a no-op logger for
// tests and wiring code that cannot fail.
package logging
