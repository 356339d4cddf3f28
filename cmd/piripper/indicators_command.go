package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"piripper/internal/indicator"
)

func newIndicatorsCommand(ctx *commandContext) *cobra.Command {
	indicatorsCmd := &cobra.Command{
		Use:   "indicators",
		Short: "Drive the status lights by hand",
	}
	indicatorsCmd.AddCommand(newIndicatorsOffCommand(ctx))
	indicatorsCmd.AddCommand(newIndicatorsTestCommand(ctx))
	return indicatorsCmd
}

func newIndicatorsOffCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "off",
		Short: "Switch both lights off",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lights := indicator.NewController(cfg)
			if err := lights.Initialize(); err != nil {
				return err
			}
			if err := lights.AllOff(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Indicators off")
			return nil
		},
	}
}

func newIndicatorsTestCommand(ctx *commandContext) *cobra.Command {
	var hold time.Duration

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Light each indicator in turn",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lights := indicator.NewController(cfg)
			if err := lights.Initialize(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, light := range []indicator.Light{lights.Activity, lights.Error} {
				fmt.Fprintf(out, "%s on (%s)\n", light.Name, light.Path)
				if err := lights.Set(light, true); err != nil {
					return errors.Join(err, lights.AllOff())
				}
				select {
				case <-cmd.Context().Done():
					return errors.Join(cmd.Context().Err(), lights.AllOff())
				case <-time.After(hold):
				}
				if err := lights.Set(light, false); err != nil {
					return errors.Join(err, lights.AllOff())
				}
			}
			fmt.Fprintln(out, "Indicator test complete")
			return nil
		},
	}
	cmd.Flags().DurationVar(&hold, "hold", 2*time.Second, "How long each light stays on")
	return cmd
}
