package preflight

import (
	"piripper/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Rip output", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Mount point", cfg.Paths.MountDir),
		CheckDevice("Optical drive", cfg.Drive.Device),
		CheckIndicator("Activity light", cfg.Indicators.ActivityPath),
		CheckIndicator("Error light", cfg.Indicators.ErrorPath),
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
