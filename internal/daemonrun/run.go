package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"piripper/internal/config"
	"piripper/internal/daemon"
	"piripper/internal/deps"
	"piripper/internal/disc"
	"piripper/internal/faults"
	"piripper/internal/history"
	"piripper/internal/indicator"
	"piripper/internal/logging"
	"piripper/internal/notifications"
	"piripper/internal/offload"
	"piripper/internal/preflight"
	"piripper/internal/procrun"
	"piripper/internal/ripping"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
}

// Run starts the piripper daemon and blocks until SIGINT/SIGTERM or a fatal
// error.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sessionID := uuid.NewString()
	logPath := logging.RunLogPath(cfg.Paths.LogDir, sessionID)
	logCfg := *cfg
	if strings.TrimSpace(opts.LogLevel) != "" {
		logCfg.Logging.Level = opts.LogLevel
	}
	logger, err := logging.NewFromConfig(&logCfg, logPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String("session_id", sessionID))

	// The lock comes before anything that touches shared state: the log
	// pointer, log retention, the journal, and the lights.
	lock := daemon.NewInstanceLock(cfg.Paths.LockFile)
	if err := lock.Acquire(); err != nil {
		logging.ErrorWithContext(logger, "piripper is already running", "already_running",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, faults.Hint(err)),
			logging.String("lock_file", lock.Path()),
		)
		return err
	}
	defer func() { _ = lock.Release() }()

	if err := logging.EnsureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update piripper.log link: %v\n", err)
	}
	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, logPath)

	logEnvironmentSnapshot(logger, cfg)

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Error("create state directories", logging.Error(err))
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)

	var waker *disc.UdevWaker
	if cfg.Drive.UdevWake {
		waker = disc.NewUdevWaker(cfg.Drive.Device, logger)
		if err := waker.Start(signalCtx); err != nil {
			logger.Warn("udev wake unavailable",
				logging.Error(err),
				logging.String(logging.FieldEventType, "udev_wake_unavailable"),
				logging.String(logging.FieldErrorHint, "allow netlink sockets for the daemon or set drive.udev_wake = false"),
				logging.String(logging.FieldImpact, "disc detection falls back to plain polling"),
			)
			waker = nil
		} else {
			defer waker.Stop()
		}
	}

	d, err := newDaemon(cfg, lock, store, notifier, waker, procrun.NewExecRunner(), logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	return d.Run(signalCtx)
}

// newDaemon wires the concrete components into a daemon. lock may already be
// held; the daemon's own Acquire is then a no-op.
func newDaemon(cfg *config.Config, lock *daemon.InstanceLock, store *history.Store, notifier notifications.Service, waker *disc.UdevWaker, runner procrun.Runner, logger *slog.Logger) (*daemon.Daemon, error) {
	lights := indicator.NewController(cfg)
	monitor := disc.NewMonitor(cfg, logger)
	if waker != nil {
		monitor.Wake = waker.Wake()
	}
	parts := daemon.Deps{
		Lights:    lights,
		Waiter:    monitor,
		Ejector:   disc.NewEjector(cfg.Tools.Eject, runner, logger),
		Ripper:    ripping.NewRipper(cfg, runner, lights, logger),
		Offloader: offload.NewOffloader(cfg, runner, logger),
		Notifier:  notifier,
		Lock:      lock,
	}
	if store != nil {
		parts.Journal = store
	}
	return daemon.New(cfg, parts, logger)
}

// logEnvironmentSnapshot records preflight and tool availability once at
// startup. Failures are warnings; the loop reports the real error when a
// step actually needs the missing piece.
func logEnvironmentSnapshot(logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.RunAll(cfg) {
		if result.Passed {
			logger.Debug("preflight passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail),
			)
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run piripper status for the full report"),
		)
	}

	statuses := preflight.CheckSystemDeps(cfg)
	for _, status := range statuses {
		logger.Info("dependency snapshot",
			logging.String(logging.FieldEventType, "dependency_snapshot"),
			logging.String("tool", status.Name),
			logging.String("command", status.Command),
			logging.Bool("available", status.Available),
			logging.Bool("optional", status.Optional),
			logging.String("path", status.Path),
		)
	}
	if err := deps.MissingError(statuses); err != nil {
		logging.WarnWithContext(logger, "required tools missing", "dependency_missing",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, faults.Hint(err)),
			logging.String(logging.FieldImpact, "the matching step will fail each cycle and latch the error light"),
		)
	}
}
