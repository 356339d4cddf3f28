package daemon

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"piripper/internal/faults"
	"piripper/internal/logging"
)

// errStop is returned by a stage when the loop must end without an error of
// its own: ctx was cancelled.
var errStop = errors.New("stop")

// Run executes the startup sequence and then loops forever over wait, rip,
// offload, and eject. It returns nil when ctx is cancelled and the first
// daemon-fatal error otherwise. The lock is taken before anything else, so a
// second instance exits without touching the lights or the journal. Once
// the lock is held, shutdown runs on every return path.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("piripper starting",
		logging.String(logging.FieldEventType, "daemon_starting"),
		logging.String(logging.FieldDevice, d.cfg.Drive.Device),
		logging.String("output_dir", d.cfg.Paths.OutputDir),
	)

	if err := d.deps.Lock.Acquire(); err != nil {
		logging.ErrorWithContext(d.logger, "piripper is already running", "already_running",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, faults.Hint(err)),
			logging.String("lock_file", d.deps.Lock.Path()),
		)
		return err
	}
	d.setPhase(ctx, PhaseLocked)

	err := d.serve(ctx)
	d.shutdown(ctx, err)
	return err
}

func (d *Daemon) serve(ctx context.Context) error {
	if err := d.deps.Lights.Initialize(); err != nil {
		logging.ErrorWithContext(d.logger, "indicator setup failed", "indicator_init_failed",
			logging.Error(err), logging.String(logging.FieldErrorHint, faults.Hint(err)))
		return err
	}
	if err := d.deps.Lights.AllOff(); err != nil {
		logging.ErrorWithContext(d.logger, "indicator setup failed", "indicator_init_failed",
			logging.Error(err), logging.String(logging.FieldErrorHint, faults.Hint(err)))
		return err
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		err = faults.Wrap(faults.ErrConfiguration, "daemon", "ensure directories", "", err)
		d.report(ctx, "startup", err)
		return err
	}
	if d.deps.Journal != nil {
		bctx, cancel := bookkeeping(ctx)
		if n, jerr := d.deps.Journal.AbandonRunning(bctx); jerr == nil && n > 0 {
			d.logger.Info("marked interrupted rips as failed", logging.Int64("count", n))
		}
		cancel()
	}

	if err := d.eject(ctx); err != nil {
		return stopError(err)
	}

	for {
		for _, stage := range []func(context.Context) error{d.waitForDisc, d.rip, d.offload, d.eject} {
			if err := stage(ctx); err != nil {
				return stopError(err)
			}
		}
	}
}

func stopError(err error) error {
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

// contain routes a stage error through the fault path. It returns errStop
// when ctx is done, the error itself when it is daemon-fatal, and nil when
// the loop should carry on.
func (d *Daemon) contain(ctx context.Context, stage string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		d.logger.Info(stage+" interrupted", logging.String(logging.FieldEventType, stage+"_interrupted"))
		return errStop
	}
	if d.report(ctx, stage, err) == faults.SeverityDaemon {
		return err
	}
	return nil
}

func (d *Daemon) waitForDisc(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return errStop
		}
		d.setPhase(ctx, PhaseWaitingForDisc)
		d.logger.Info("waiting for a disc to be inserted", logging.String(logging.FieldDevice, d.cfg.Drive.Device))
		status, err := d.deps.Waiter.WaitForDiscLoaded(ctx)
		if err == nil {
			d.logger.Info("disc detected",
				logging.String(logging.FieldEventType, "disc_detected"),
				logging.String("drive_status", status.String()),
			)
			return nil
		}
		if ctx.Err() != nil {
			return errStop
		}
		if d.report(ctx, "wait", err) == faults.SeverityDaemon {
			return err
		}
		if !errors.Is(err, faults.ErrPollLimit) {
			return nil
		}
	}
}

func (d *Daemon) rip(ctx context.Context) error {
	if ctx.Err() != nil {
		return errStop
	}
	run := d.deps.Ripper.NewRun()
	d.runID = run.RunID
	defer func() { d.runID = "" }()
	ctx = logging.WithRunID(ctx, run.RunID)
	d.setPhase(ctx, PhaseRipping)

	bctx, cancel := bookkeeping(ctx)
	defer cancel()
	if d.deps.Journal != nil {
		if err := d.deps.Journal.StartRip(bctx, run.RunID, run.OutputDir, d.cfg.Drive.Device, run.StartedAt); err != nil {
			d.logger.Debug("rip start not recorded", logging.Error(err))
		}
	}
	if err := d.deps.Notifier.NotifyRipStarted(bctx, run.OutputDir); err != nil {
		d.logger.Debug("rip start notification failed", logging.Error(err))
	}

	result, ripErr := d.deps.Ripper.Rip(ctx, run)

	if d.deps.Journal != nil {
		if err := d.deps.Journal.FinishRip(bctx, run.RunID, result.ExitCode, ripErr); err != nil {
			d.logger.Debug("rip result not recorded", logging.Error(err))
		}
	}
	if ripErr != nil {
		return d.contain(ctx, "rip", ripErr)
	}

	if d.cfg.Indicators.ClearErrorOnSuccess {
		if err := d.deps.Lights.SetError(false); err != nil {
			return d.contain(ctx, "rip", err)
		}
	}
	if err := d.deps.Notifier.NotifyRipCompleted(bctx, result.OutputDir, result.Duration); err != nil {
		d.logger.Debug("rip completion notification failed", logging.Error(err))
	}
	return nil
}

func (d *Daemon) offload(ctx context.Context) error {
	if ctx.Err() != nil {
		return errStop
	}
	d.setPhase(ctx, PhaseOffloading)
	report, err := d.deps.Offloader.CopyFilesToStorage(ctx)

	bctx, cancel := bookkeeping(ctx)
	defer cancel()
	if d.deps.Journal != nil {
		for _, entry := range report.Moved {
			outputDir := filepath.Join(d.cfg.Paths.OutputDir, entry.Name)
			if jerr := d.deps.Journal.MarkOffloaded(bctx, outputDir, report.Device, entry.Bytes); jerr != nil {
				d.logger.Debug("offload not recorded", logging.Error(jerr))
			}
		}
	}
	if len(report.Leftover) > 0 {
		logging.WarnWithContext(d.logger, "offloaded runs still on local disk", "offload_leftover",
			logging.Int("count", len(report.Leftover)),
			logging.String("runs", strings.Join(report.Leftover, ",")),
			logging.String(logging.FieldErrorHint, "delete them from "+d.cfg.Paths.OutputDir+" once the storage copy is checked"),
			logging.String(logging.FieldImpact, "local disk space was not reclaimed"),
		)
	}
	if len(report.Moved) > 0 {
		if nerr := d.deps.Notifier.NotifyOffloadCompleted(bctx, report.Device, len(report.Moved), report.BytesMoved, len(report.Leftover)); nerr != nil {
			d.logger.Debug("offload notification failed", logging.Error(nerr))
		}
	}
	return d.contain(ctx, "offload", err)
}

func (d *Daemon) eject(ctx context.Context) error {
	if ctx.Err() != nil {
		return errStop
	}
	d.setPhase(ctx, PhaseEjecting)
	return d.contain(ctx, "eject", d.deps.Ejector.Eject(ctx, d.cfg.Drive.Device))
}

// shutdown removes the lock file and then settles the lights. After an
// interrupt both lights are forced off. After a daemon-fatal error the
// activity light goes off and the error light stays latched, so the board
// still shows the failure once the process has exited. Every step is
// attempted; failures are only logged.
func (d *Daemon) shutdown(ctx context.Context, cause error) {
	d.setPhase(ctx, PhaseShuttingDown)
	if err := d.deps.Lock.Release(); err != nil {
		logging.WarnWithContext(d.logger, "lock release failed", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.deps.Lock.Path()+" by hand if it lingers"),
			logging.String(logging.FieldImpact, "none; the lock dies with this process"),
		)
	}
	if cause == nil {
		if err := d.deps.Lights.AllOff(); err != nil {
			logging.WarnWithContext(d.logger, "indicators not switched off", "indicator_shutdown_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, faults.Hint(err)),
				logging.String(logging.FieldImpact, "a light may stay lit after exit"),
			)
		}
	} else {
		d.latchFatal(cause)
	}
	d.setPhase(ctx, PhaseStopped)
	d.logger.Info("piripper stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

func (d *Daemon) latchFatal(cause error) {
	if err := d.deps.Lights.SetActivity(false); err != nil {
		d.logger.Error("activity light not cleared", logging.Error(err))
	}
	if err := d.deps.Lights.SetError(true); err != nil {
		logging.ErrorWithContext(d.logger, "error light not set on fatal exit", "indicator_shutdown_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, faults.Hint(err)),
		)
		return
	}
	d.logger.Info("error light left on after fatal error",
		logging.String(logging.FieldEventType, "error_latched_on_exit"),
		logging.String("cause", cause.Error()),
	)
}
