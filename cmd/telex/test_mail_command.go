package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"telex/internal/services/smtp"
)

func newTestMailCommand(ctx *commandContext) *cobra.Command {
	var recipient string

	cmd := &cobra.Command{
		Use:   "test-mail",
		Short: "Send a test message through the configured SMTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			client, err := smtp.New(cfg)
			if err != nil {
				return err
			}

			to := strings.TrimSpace(recipient)
			if to == "" {
				to = cfg.Mail.DefaultRecipient
			}
			msg := smtp.Message{
				From:       cfg.Mail.From,
				Recipients: []string{to},
				Subject:    "telex test message",
				Body: fmt.Sprintf("This is a test message sent by telex at %s.\nSMTP server: %s\n",
					time.Now().Format(time.RFC1123Z), client.Address()),
			}
			if err := client.Send(cmd.Context(), msg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Test message sent to %s via %s\n", to, client.Address())
			return nil
		},
	}

	cmd.Flags().StringVar(&recipient, "to", "", "Recipient address (defaults to mail.default_recipient)")
	return cmd
}
