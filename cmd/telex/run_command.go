package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"telex/internal/daemon"
	"telex/internal/logging"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the watch, extract and dispatch pipeline in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			logger.Info("configuration loaded",
				logging.String("config", ctx.configPath),
				logging.String("log_file", cfg.LogPath()),
			)

			opts := []daemon.Option{}
			if !skipPreflight {
				opts = append(opts, daemon.WithPreflight())
			}
			d, err := daemon.New(cfg, logger, opts...)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			return d.Run(signalCtx)
		},
	}

	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Do not run readiness checks at startup")
	return cmd
}
