package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"piripper/internal/config"
	"piripper/internal/daemon"
	"piripper/internal/disc"
	"piripper/internal/history"
	"piripper/internal/indicator"
	"piripper/internal/preflight"
	"piripper/internal/ripping"
)

const statusQueryTimeout = 5 * time.Second

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, drive, rip history, and environment status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range renderStatus(buildStatusSections(cmd.Context(), cfg), shouldColorize(out)) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func buildStatusSections(ctx context.Context, cfg *config.Config) []statusSection {
	store, storeErr := history.Open(cfg)
	if storeErr == nil {
		defer store.Close()
	}
	qctx, cancel := context.WithTimeout(ctx, statusQueryTimeout)
	defer cancel()

	daemonLines := daemonStatusLines(qctx, cfg, store)
	daemonLines = append(daemonLines, driveLine(cfg))
	if store != nil {
		daemonLines = append(daemonLines, lastFaultLines(qctx, store)...)
	}
	daemonLines = append(daemonLines, statusLine{"Lock file", kindIdle, cfg.Paths.LockFile})

	var ripLines []statusLine
	if storeErr != nil {
		ripLines = []statusLine{{"History", kindAttention, storeErr.Error()}}
	} else {
		ripLines = ripCountLines(qctx, cfg, store)
	}

	return []statusSection{
		{title: "Daemon", lines: daemonLines},
		{title: "Rips", lines: ripLines},
		{title: "Indicators", lines: indicatorLines(cfg)},
		{title: "Environment", lines: environmentLines(cfg)},
		{title: "Dependencies", lines: dependencyLines(cfg)},
	}
}

func daemonStatusLines(ctx context.Context, cfg *config.Config, store *history.Store) []statusLine {
	held, pid, err := daemon.LockHolder(cfg.Paths.LockFile)
	var lines []statusLine
	switch {
	case err != nil:
		lines = append(lines, statusLine{"Daemon", kindAttention, fmt.Sprintf("Unknown (%v)", err)})
	case held && pid > 0:
		lines = append(lines, statusLine{"Daemon", kindGood, fmt.Sprintf("Running (pid %d)", pid)})
	case held:
		lines = append(lines, statusLine{"Daemon", kindGood, "Running"})
	default:
		lines = append(lines, statusLine{"Daemon", kindIdle, "Not running"})
	}

	var state *history.DaemonState
	if store != nil {
		state, _ = store.Phase(ctx)
	}
	if state == nil {
		return append(lines, statusLine{"Phase", kindIdle, "No record"})
	}
	phase := daemon.Phase(state.Phase)
	message := humanLabel(state.Phase)
	if !state.UpdatedAt.IsZero() {
		message += " (" + humanize.Time(state.UpdatedAt) + ")"
	}
	kind := kindIdle
	if held && phase.Active() {
		kind = kindGood
	} else if !held && phase.Active() {
		// The last recorded phase was never closed out.
		kind = kindAttention
		message += ", daemon exited uncleanly"
	}
	lines = append(lines, statusLine{"Phase", kind, message})
	if state.RunID != "" {
		lines = append(lines, statusLine{"Run", kindIdle, state.RunID})
	}
	return lines
}

// driveLine queries the tray once. A disc in the drive while the daemon
// waits is normal; an unreadable drive is a fault.
func driveLine(cfg *config.Config) statusLine {
	status, err := disc.CheckDriveStatus(cfg.Drive.Device)
	if err != nil {
		return statusLine{"Drive", kindFault, fmt.Sprintf("%s unavailable (%v)", cfg.Drive.Device, err)}
	}
	kind := kindIdle
	switch status {
	case disc.DriveStatusDiscOK:
		kind = kindGood
	case disc.DriveStatusNoInfo:
		kind = kindAttention
	}
	return statusLine{"Drive", kind, fmt.Sprintf("%s: %s", cfg.Drive.Device, humanLabel(status.String()))}
}

func lastFaultLines(ctx context.Context, store *history.Store) []statusLine {
	fault, err := store.LastFault(ctx)
	if err != nil {
		return []statusLine{{"Last fault", kindAttention, err.Error()}}
	}
	if fault == nil {
		return []statusLine{{"Last fault", kindIdle, "None recorded"}}
	}
	message := fmt.Sprintf("%s: %s (%s)", fault.Stage, fault.Message, humanize.Time(fault.RecordedAt))
	return []statusLine{{"Last fault", kindAttention, message}}
}

func indicatorLines(cfg *config.Config) []statusLine {
	lights := indicator.NewController(cfg)
	var lines []statusLine
	for _, light := range []indicator.Light{lights.Activity, lights.Error} {
		label := humanLabel(light.Name)
		on, err := lights.Brightness(light)
		switch {
		case err != nil:
			lines = append(lines, statusLine{label, kindAttention, "Unreadable"})
		case on:
			lines = append(lines, statusLine{label, lightKind(on, light == lights.Error), "On"})
		default:
			lines = append(lines, statusLine{label, kindIdle, "Off"})
		}
	}
	return lines
}

func environmentLines(cfg *config.Config) []statusLine {
	var lines []statusLine
	for _, result := range preflight.RunAll(cfg) {
		kind := kindGood
		if !result.Passed {
			kind = kindFault
		}
		lines = append(lines, statusLine{humanLabel(result.Name), kind, result.Detail})
	}
	return lines
}

func dependencyLines(cfg *config.Config) []statusLine {
	var lines []statusLine
	for _, status := range preflight.CheckSystemDeps(cfg) {
		switch {
		case status.Available:
			lines = append(lines, statusLine{status.Name, kindGood, status.Path})
		case status.Optional:
			lines = append(lines, statusLine{status.Name, kindAttention, status.Detail})
		default:
			lines = append(lines, statusLine{status.Name, kindFault, status.Detail})
		}
	}
	return lines
}

func ripCountLines(ctx context.Context, cfg *config.Config, store *history.Store) []statusLine {
	counts, err := store.Counts(ctx)
	if err != nil {
		return []statusLine{{"History", kindAttention, err.Error()}}
	}

	var lines []statusLine
	for _, status := range []history.Status{history.StatusRipping, history.StatusRipped, history.StatusOffloaded, history.StatusFailed} {
		kind := kindIdle
		if status == history.StatusFailed && counts[status] > 0 {
			kind = kindAttention
		}
		lines = append(lines, statusLine{humanLabel(string(status)), kind, humanize.Comma(int64(counts[status]))})
	}
	if pending := pendingOutputCount(cfg); pending > 0 {
		lines = append(lines, statusLine{"Awaiting offload", kindAttention,
			fmt.Sprintf("%d run(s) in %s", pending, cfg.Paths.OutputDir)})
	}
	return lines
}

func pendingOutputCount(cfg *config.Config) int {
	entries, err := os.ReadDir(cfg.Paths.OutputDir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() && ripping.HasRunPrefix(entry.Name(), cfg.Ripit.DirPrefix) {
			count++
		}
	}
	return count
}
