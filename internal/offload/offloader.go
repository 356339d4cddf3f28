package offload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"piripper/internal/config"
	"piripper/internal/faults"
	"piripper/internal/fileutil"
	"piripper/internal/logging"
	"piripper/internal/procrun"
	"piripper/internal/ripping"
)

// cleanupTimeout bounds the unmount that runs after ctx may already be done.
const cleanupTimeout = 30 * time.Second

// Entry is one run directory moved to storage.
type Entry struct {
	Name  string
	Bytes int64
}

// Report summarises one offload attempt.
type Report struct {
	Device      string
	DeviceFound bool
	Moved       []Entry
	Skipped     []string
	// Leftover lists sources that were copied but could not be deleted.
	Leftover   []string
	BytesMoved int64
}

// Offloader moves rip output onto removable storage.
type Offloader struct {
	cfg        *config.Config
	runner     procrun.Runner
	logger     *slog.Logger
	freeSpace  FreeSpaceFunc
	mountsPath string
}

// NewOffloader constructs an offloader that mounts through runner.
func NewOffloader(cfg *config.Config, runner procrun.Runner, logger *slog.Logger) *Offloader {
	if runner == nil {
		runner = procrun.NewExecRunner()
	}
	return &Offloader{
		cfg:        cfg,
		runner:     runner,
		logger:     logging.NewComponentLogger(logger, "offloader"),
		freeSpace:  diskFree,
		mountsPath: procMounts,
	}
}

// CopyFilesToStorage moves every run directory in the output root onto the
// first connected storage device. Without a device it returns an empty
// report and touches nothing. Once the device is mounted it is always
// unmounted again; an unmount failure is joined into the returned error.
func (o *Offloader) CopyFilesToStorage(ctx context.Context) (report Report, err error) {
	logger := logging.WithContext(ctx, o.logger)

	device, findErr := FindConnectedStorage(o.cfg.Storage.DeviceDir, o.cfg.Storage.DevicePrefixes)
	if findErr != nil {
		logging.WarnWithContext(logger, "storage scan failed; skipping offload", "storage_scan_failed",
			logging.String("device_dir", o.cfg.Storage.DeviceDir),
			logging.Error(findErr),
			logging.String(logging.FieldImpact, "rip output stays on local disk"),
		)
		return report, nil
	}
	if device == "" {
		logger.Info("no external storage connected", logging.String(logging.FieldEventType, "storage_absent"))
		return report, nil
	}
	report.Device = device
	report.DeviceFound = true
	logger = logger.With(logging.String(logging.FieldDevice, device))

	mountDir := o.cfg.Paths.MountDir
	if err := o.clearStaleMount(ctx, logger, mountDir); err != nil {
		return report, err
	}

	result, runErr := o.runner.Run(ctx, o.cfg.Tools.Mount, device, mountDir)
	if err := procrun.Classify("offload", "mount", result, runErr); err != nil {
		return report, err
	}
	logger.Info("storage mounted",
		logging.String(logging.FieldEventType, "storage_mounted"),
		logging.String("mount_dir", mountDir),
	)

	defer func() {
		if uerr := o.unmount(ctx, device); uerr != nil {
			err = errors.Join(err, uerr)
			return
		}
		logger.Info("storage unmounted", logging.String(logging.FieldEventType, "storage_unmounted"))
	}()

	err = o.moveRuns(ctx, logger, mountDir, &report)
	if err == nil {
		logger.Info("offload complete",
			logging.String(logging.FieldEventType, "offload_completed"),
			logging.Int("moved", len(report.Moved)),
			logging.Int("skipped", len(report.Skipped)),
			logging.String("bytes", humanize.Bytes(uint64(report.BytesMoved))),
		)
	}
	return report, err
}

func (o *Offloader) moveRuns(ctx context.Context, logger *slog.Logger, mountDir string, report *Report) error {
	entries, err := os.ReadDir(o.cfg.Paths.OutputDir)
	if err != nil {
		return faults.Wrap(faults.ErrCopy, "offload", "list output", o.cfg.Paths.OutputDir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !ripping.HasRunPrefix(name, o.cfg.Ripit.DirPrefix) {
			continue
		}
		if !entry.IsDir() {
			logger.Debug("ignoring non-directory run entry", logging.String("name", name))
			continue
		}
		src := filepath.Join(o.cfg.Paths.OutputDir, name)
		dst := filepath.Join(mountDir, name)

		if _, err := os.Lstat(dst); err == nil {
			logger.Info("destination exists; skipping", logging.String("name", name))
			report.Skipped = append(report.Skipped, name)
			continue
		} else if !os.IsNotExist(err) {
			return faults.Wrap(faults.ErrCopy, "offload", "stat destination", dst, err)
		}

		if err := o.ensureSpace(logger, src, mountDir); err != nil {
			return err
		}

		logger.Info("copying run to storage", logging.String("source", src), logging.String("destination", dst))
		copied, err := fileutil.CopyTree(ctx, src, dst, fileutil.TreeOptions{Verify: o.cfg.Storage.VerifyCopies})
		if err != nil {
			if rmErr := os.RemoveAll(dst); rmErr != nil {
				logging.WarnWithContext(logger, "partial copy cleanup failed", "offload_cleanup_failed",
					logging.String("destination", dst),
					logging.Error(rmErr),
					logging.String(logging.FieldErrorHint, "delete the partial directory on the storage device by hand"),
					logging.String(logging.FieldImpact, "this run will be skipped on later offloads until removed"),
				)
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return faults.Wrap(faults.ErrCopy, "offload", "copy "+name, "", err)
		}

		logger.Info("deleting local copy", logging.String("source", src), logging.String("bytes", humanize.Bytes(uint64(copied))))
		if err := os.RemoveAll(src); err != nil {
			logging.WarnWithContext(logger, "local copy not deleted", "offload_delete_failed",
				logging.String("source", src),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the rip output directory"),
				logging.String(logging.FieldImpact, "local disk space is not reclaimed for this run"),
			)
			report.Leftover = append(report.Leftover, name)
		}
		report.Moved = append(report.Moved, Entry{Name: name, Bytes: copied})
		report.BytesMoved += copied
	}
	return nil
}

// ensureSpace checks that the storage has room for src plus the configured
// reserve. A failed probe is logged and the copy is attempted anyway.
func (o *Offloader) ensureSpace(logger *slog.Logger, src, mountDir string) error {
	if o.freeSpace == nil {
		return nil
	}
	size, err := fileutil.TreeSize(src)
	if err != nil {
		return faults.Wrap(faults.ErrCopy, "offload", "measure source", src, err)
	}
	free, err := o.freeSpace(mountDir)
	if err != nil {
		logger.Debug("free space probe failed", logging.String("mount_dir", mountDir), logging.Error(err))
		return nil
	}
	need := uint64(size) + o.cfg.Storage.MinFreeBytes
	if free < need {
		return faults.Wrap(faults.ErrInsufficientSpace, "offload", "check space",
			fmt.Sprintf("need %s, %s free", humanize.Bytes(need), humanize.Bytes(free)), nil)
	}
	return nil
}

// clearStaleMount unmounts the mount point if an earlier run left it mounted.
func (o *Offloader) clearStaleMount(ctx context.Context, logger *slog.Logger, mountDir string) error {
	if o.mountsPath == "" {
		return nil
	}
	mounted, err := mountedAt(o.mountsPath, mountDir)
	if err != nil {
		logger.Debug("mount table unreadable", logging.Error(err))
		return nil
	}
	if !mounted {
		return nil
	}
	logging.WarnWithContext(logger, "mount point already in use; unmounting", "stale_mount",
		logging.String("mount_dir", mountDir),
		logging.String(logging.FieldErrorHint, "a previous run likely stopped before unmounting"),
		logging.String(logging.FieldImpact, "none if the unmount succeeds"),
	)
	result, runErr := o.runner.Run(ctx, o.cfg.Tools.Umount, mountDir)
	return procrun.Classify("offload", "unmount stale mount", result, runErr)
}

func (o *Offloader) unmount(ctx context.Context, device string) error {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	result, err := o.runner.Run(cleanupCtx, o.cfg.Tools.Umount, device)
	return procrun.Classify("offload", "unmount", result, err)
}
