package ripping

import (
	"strconv"
	"strings"
	"time"
)

// timestampLayout renders day-month-year_hour-minute-second.
const timestampLayout = "02-01-2006_15-04-05"

// OutputDirName returns the per-run directory name: prefix_DD-MM-YYYY_HH-MM-SS.
func OutputDirName(prefix string, t time.Time) string {
	return prefix + "_" + t.Format(timestampLayout)
}

// HasRunPrefix reports whether name belongs to this daemon, meaning it
// starts with prefix.
func HasRunPrefix(name, prefix string) bool {
	return prefix != "" && strings.HasPrefix(name, prefix)
}

// Options are the fixed ripit flags.
type Options struct {
	Device      string
	BitrateKbps int
	Threads     int
	OutputDir   string
}

// BuildArgs returns the ripit argument list: device, bitrate, thread count,
// non-interactive mode, playlist disabled, output directory.
func BuildArgs(opts Options) []string {
	return []string{
		"--device", opts.Device,
		"--bitrate", strconv.Itoa(opts.BitrateKbps),
		"--threads", strconv.Itoa(opts.Threads),
		"--nointeraction",
		"--playlist", "0",
		"--outputdir", opts.OutputDir,
	}
}
