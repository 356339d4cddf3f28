package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"piripper/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent rips",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			qctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			rips, err := store.List(qctx, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rips) == 0 {
				fmt.Fprintln(out, "No rips recorded")
				return nil
			}
			fmt.Fprintln(out, historyTable(rips, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of rips to show (0 for all)")
	return cmd
}

func historyTable(rips []history.Rip, now time.Time) string {
	tbl := tableLayout{
		headers: []string{"Started", "Run", "Status", "Exit", "Duration", "Offloaded"},
		aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	}
	var total int64
	for _, rip := range rips {
		exit := "-"
		if rip.ExitCode != nil {
			exit = strconv.Itoa(*rip.ExitCode)
		}
		duration := "-"
		if d := rip.Duration(); d > 0 {
			duration = d.Round(time.Second).String()
		}
		offloaded := "-"
		if rip.Status == history.StatusOffloaded {
			offloaded = humanize.IBytes(uint64(max(rip.BytesOffloaded, 0)))
			if rip.StorageDevice != "" {
				offloaded += " → " + filepath.Base(rip.StorageDevice)
			}
			total += rip.BytesOffloaded
		}
		tbl.rows = append(tbl.rows, []string{
			humanize.RelTime(rip.StartedAt, now, "ago", "from now"),
			filepath.Base(rip.OutputDir),
			humanLabel(string(rip.Status)),
			exit,
			duration,
			offloaded,
		})
	}
	tbl.footer = []string{"", fmt.Sprintf("%d rip(s)", len(rips)), "", "", "", humanize.IBytes(uint64(max(total, 0)))}
	return tbl.render()
}
