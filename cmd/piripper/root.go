package main

import (
	"github.com/spf13/cobra"

	"piripper/internal/procrun"
)

func newRootCommand() *cobra.Command {
	return newRootCommandWithRunner(procrun.NewExecRunner())
}

func newRootCommandWithRunner(runner procrun.Runner) *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag, runner)

	rootCmd := &cobra.Command{
		Use:           "piripper",
		Short:         "Unattended optical disc ripper",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newEjectCommand(ctx))
	rootCmd.AddCommand(newIndicatorsCommand(ctx))
	rootCmd.AddCommand(newNotifyCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
