// Package main hosts the telex CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the pipeline supervisor in the
// foreground and exposes configuration scaffolding, outcome history, and
// readiness checks. It centralizes configuration resolution and logger
// construction so subcommands can focus on output instead of wiring.
package main
