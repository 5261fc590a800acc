package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"telex/internal/daemon"
	"telex/internal/services"
)

// Process exit statuses.
const (
	exitOK             = 0
	exitFailure        = 1
	exitConfiguration  = 2
	exitAlreadyRunning = 3
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stderr))
}

func execute(args []string, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "telex: %v\n", err)
	}
	return exitCode(err)
}

// exitCode lets service managers tell a bad config or a second instance apart
// from a runtime failure.
func exitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return exitOK
	case errors.Is(err, services.ErrConfiguration):
		return exitConfiguration
	case errors.Is(err, daemon.ErrAlreadyRunning):
		return exitAlreadyRunning
	default:
		return exitFailure
	}
}
