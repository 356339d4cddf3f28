package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// PruneRunLogs removes piripper-*.log files in logDir older than
// retentionDays, never touching keep. A retentionDays value of 0 disables
// pruning. It returns the number of files removed.
func PruneRunLogs(logger *slog.Logger, logDir string, retentionDays int, keep string) int {
	if retentionDays <= 0 || logDir == "" {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	if abs, err := filepath.Abs(keep); err == nil {
		keep = abs
	}

	matches, err := filepath.Glob(filepath.Join(logDir, "piripper-*.log"))
	if err != nil {
		return 0
	}
	removed := 0
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if path == keep {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
