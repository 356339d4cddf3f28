package ripping

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"piripper/internal/config"
	"piripper/internal/faults"
	"piripper/internal/logging"
	"piripper/internal/procrun"
)

// ActivityLight is the part of the indicator controller the ripper drives.
type ActivityLight interface {
	SetActivity(on bool) error
}

// Result describes one ripit run.
type Result struct {
	RunID     string
	OutputDir string
	StartedAt time.Time
	Duration  time.Duration
	ExitCode  int
	// OutputTail holds the last lines of ripit's combined output.
	OutputTail string
}

// Ripper invokes ripit.
type Ripper struct {
	cfg    *config.Config
	runner procrun.Runner
	light  ActivityLight
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewRipper constructs a ripper around runner and light.
func NewRipper(cfg *config.Config, runner procrun.Runner, light ActivityLight, logger *slog.Logger) *Ripper {
	if runner == nil {
		runner = procrun.NewExecRunner()
	}
	return &Ripper{
		cfg:    cfg,
		runner: runner,
		light:  light,
		logger: logging.NewComponentLogger(logger, "ripper"),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// NewRun allocates the run id, start time, and output directory for the
// next rip without starting it.
func (r *Ripper) NewRun() Result {
	started := r.now()
	return Result{
		RunID:     r.newID(),
		StartedAt: started,
		OutputDir: filepath.Join(r.cfg.Paths.OutputDir, OutputDirName(r.cfg.Ripit.DirPrefix, started)),
		ExitCode:  -1,
	}
}

// RipInsertedDisc rips the disc in the configured drive into a fresh output
// directory.
func (r *Ripper) RipInsertedDisc(ctx context.Context) (Result, error) {
	return r.Rip(ctx, r.NewRun())
}

// Rip runs ripit for a run allocated by NewRun. The activity light is on
// while ripit runs and is switched off before the exit code is looked at,
// on every path. Indicator write failures are returned as device errors
// alongside any rip error.
func (r *Ripper) Rip(ctx context.Context, result Result) (Result, error) {
	started := result.StartedAt
	if started.IsZero() {
		started = r.now()
		result.StartedAt = started
	}

	ctx = logging.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, r.logger)

	args := BuildArgs(Options{
		Device:      r.cfg.Drive.Device,
		BitrateKbps: r.cfg.Ripit.BitrateKbps,
		Threads:     r.cfg.Ripit.Threads,
		OutputDir:   result.OutputDir,
	})

	runCtx := ctx
	if timeout := r.cfg.RipTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Info("ripping tracks",
		logging.String(logging.FieldEventType, "rip_started"),
		logging.String("output_dir", result.OutputDir),
		logging.String(logging.FieldDevice, r.cfg.Drive.Device),
	)

	if err := r.setLight(true); err != nil {
		return result, err
	}
	runResult, runErr := r.runner.Run(runCtx, r.cfg.Ripit.Binary, args...)
	lightErr := r.setLight(false)

	result.Duration = r.now().Sub(started)
	result.ExitCode = runResult.ExitCode
	result.OutputTail = runResult.Tail(5)

	if runErr != nil && runCtx.Err() != nil && ctx.Err() == nil {
		runErr = faults.Wrap(faults.ErrExternalTool, "ripping", "ripit", "timed out after "+r.cfg.RipTimeout().String(), runErr)
	}
	if err := procrun.Classify("ripping", "ripit", runResult, runErr); err != nil {
		return result, errors.Join(err, lightErr)
	}
	if lightErr != nil {
		return result, lightErr
	}

	logger.Info("rip completed",
		logging.String(logging.FieldEventType, "rip_completed"),
		logging.String("output_dir", result.OutputDir),
		logging.Duration("duration", result.Duration),
	)
	return result, nil
}

func (r *Ripper) setLight(on bool) error {
	if r.light == nil {
		return nil
	}
	return r.light.SetActivity(on)
}
