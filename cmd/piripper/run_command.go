package main

import (
	"github.com/spf13/cobra"

	"piripper/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ripping daemon in the foreground",
		Long: "Run holds the instance lock, ejects the tray, and then loops forever:\n" +
			"wait for a disc, rip it with ripit, move finished rips to removable\n" +
			"storage, and eject. Interrupt with Ctrl-C or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	return cmd
}
