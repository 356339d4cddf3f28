package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"piripper/internal/disc"
	"piripper/internal/logging"
)

func newEjectCommand(ctx *commandContext) *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "eject",
		Short: "Open the drive tray",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := strings.TrimSpace(device)
			if target == "" {
				target = cfg.Drive.Device
			}
			ejector := disc.NewEjector(cfg.Tools.Eject, ctx.runner, logging.NewNop())
			if err := ejector.Eject(cmd.Context(), target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ejected %s\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "Drive to eject (defaults to drive.device)")
	return cmd
}
