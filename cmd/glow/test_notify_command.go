package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"glow/internal/logging"
	"glow/internal/notify"
)

// newTestNotifyCommand delivers from the CLI process using the same
// config the daemon loads, so it works with the daemon down.
func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			service := notify.NewService(cfg, logging.NewNop())
			if err := service.Test(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
