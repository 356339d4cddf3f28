package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"piripper/internal/config"
	"piripper/internal/disc"
	"piripper/internal/faults"
	"piripper/internal/history"
	"piripper/internal/logging"
	"piripper/internal/notifications"
	"piripper/internal/offload"
	"piripper/internal/ripping"
)

// bookkeepingTimeout bounds journal writes and notifications, which run on a
// context detached from shutdown.
const bookkeepingTimeout = 10 * time.Second

// Indicators is the status-light surface the daemon drives.
type Indicators interface {
	Initialize() error
	SetActivity(on bool) error
	SetError(on bool) error
	AllOff() error
}

// DiscWaiter blocks until a disc is loaded.
type DiscWaiter interface {
	WaitForDiscLoaded(ctx context.Context) (disc.DriveStatus, error)
}

// Ripper runs one rip.
type Ripper interface {
	NewRun() ripping.Result
	Rip(ctx context.Context, run ripping.Result) (ripping.Result, error)
}

// Offloader moves finished output to removable storage.
type Offloader interface {
	CopyFilesToStorage(ctx context.Context) (offload.Report, error)
}

// Journal records rips, phases, and faults. It is optional.
type Journal interface {
	StartRip(ctx context.Context, runID, outputDir, device string, startedAt time.Time) error
	FinishRip(ctx context.Context, runID string, exitCode int, ripErr error) error
	MarkOffloaded(ctx context.Context, outputDir, storageDevice string, bytes int64) error
	AbandonRunning(ctx context.Context) (int64, error)
	SetPhase(ctx context.Context, state history.DaemonState) error
	RecordFault(ctx context.Context, fault history.Fault) error
}

// Deps are the collaborators of a Daemon.
type Deps struct {
	Lights    Indicators
	Waiter    DiscWaiter
	Ejector   disc.Ejector
	Ripper    Ripper
	Offloader Offloader
	Journal   Journal
	Notifier  notifications.Service
	Lock      *InstanceLock
}

// Daemon sequences the rip loop.
type Daemon struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger

	phase Phase
	runID string
}

// New constructs a daemon. Lights, Waiter, Ejector, Ripper, and Offloader
// are required; a missing Lock defaults to the configured lock file.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if deps.Lights == nil || deps.Waiter == nil || deps.Ejector == nil || deps.Ripper == nil || deps.Offloader == nil {
		return nil, errors.New("daemon requires lights, waiter, ejector, ripper, and offloader")
	}
	if deps.Lock == nil {
		deps.Lock = NewInstanceLock(cfg.Paths.LockFile)
	}
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(&config.Config{})
	}
	return &Daemon{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "daemon"),
		phase:  PhaseIdle,
	}, nil
}

// Phase returns the current lifecycle phase.
func (d *Daemon) Phase() Phase {
	return d.phase
}

func (d *Daemon) setPhase(ctx context.Context, phase Phase) {
	if d.phase == phase {
		return
	}
	d.logger.Info("phase changed",
		logging.String(logging.FieldEventType, "phase_changed"),
		logging.String(logging.FieldPhase, phase.String()),
		logging.String("previous", d.phase.String()),
	)
	d.phase = phase
	if d.deps.Journal == nil {
		return
	}
	bctx, cancel := bookkeeping(ctx)
	defer cancel()
	state := history.DaemonState{Phase: phase.String(), PID: os.Getpid(), RunID: d.runID}
	if err := d.deps.Journal.SetPhase(bctx, state); err != nil {
		d.logger.Debug("phase not recorded", logging.Error(err))
	}
}

// bookkeeping returns a context that survives cancellation of ctx so
// shutdown can still record what happened.
func bookkeeping(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
}

// report is the single fault path. Recoverable errors are only logged.
// Anything worse switches activity off, latches the error light, records
// the fault in the journal, and sends a notification. It returns the
// severity so the caller can decide whether to stop.
func (d *Daemon) report(ctx context.Context, stage string, err error) faults.Severity {
	severity := faults.SeverityOf(err)
	logger := logging.WithContext(ctx, d.logger)
	if severity == faults.SeverityRecoverable {
		logging.WarnWithContext(logger, stage+" did not complete", stage+"_skipped",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, faults.Hint(err)),
			logging.String(logging.FieldImpact, "the loop continues normally"),
		)
		return severity
	}

	logging.ErrorWithContext(logger, stage+" failed", stage+"_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, faults.Hint(err)),
		logging.String("severity", severity.String()),
	)
	if lerr := d.deps.Lights.SetActivity(false); lerr != nil {
		logger.Error("activity light not cleared", logging.Error(lerr))
	}
	if lerr := d.deps.Lights.SetError(true); lerr != nil {
		logger.Error("error light not set", logging.Error(lerr))
	}

	bctx, cancel := bookkeeping(ctx)
	defer cancel()
	if d.deps.Journal != nil {
		fault := history.Fault{Stage: stage, RunID: d.runID, Severity: severity.String(), Message: err.Error()}
		if jerr := d.deps.Journal.RecordFault(bctx, fault); jerr != nil {
			logger.Debug("fault not recorded", logging.Error(jerr))
		}
	}
	if nerr := d.deps.Notifier.NotifyError(bctx, err, stage); nerr != nil {
		logger.Debug("error notification failed", logging.Error(nerr))
	}
	return severity
}
