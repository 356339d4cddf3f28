package daemon_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"piripper/internal/config"
	"piripper/internal/daemon"
	"piripper/internal/disc"
	"piripper/internal/faults"
	"piripper/internal/history"
	"piripper/internal/logging"
	"piripper/internal/offload"
	"piripper/internal/ripping"
	"piripper/internal/testsupport"
)

// harness records every collaborator call into one ordered trail.
type harness struct {
	t      *testing.T
	cfg    *config.Config
	cancel context.CancelFunc
	trail  []string

	// cycles is the number of discs the waiter hands out before it cancels.
	cycles   int
	waits    int
	waitErrs []error
	ripErr   error
	ejectErr func(call int) error
	ejects   int
	report   offload.Report
	offErr   error

	// lockAtAllOff records whether the lock file existed at each AllOff.
	lockAtAllOff []bool
	journal      []string
	notified     []string
}

func newHarness(t *testing.T, cycles int) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Indicators.ClearErrorOnSuccess = false
	return &harness{t: t, cfg: cfg, cycles: cycles}
}

func (h *harness) Initialize() error { h.trail = append(h.trail, "lights:init"); return nil }

func (h *harness) SetActivity(on bool) error {
	h.trail = append(h.trail, fmt.Sprintf("activity:%t", on))
	return nil
}

func (h *harness) SetError(on bool) error {
	h.trail = append(h.trail, fmt.Sprintf("error:%t", on))
	return nil
}

func (h *harness) AllOff() error {
	_, err := os.Stat(h.cfg.Paths.LockFile)
	h.lockAtAllOff = append(h.lockAtAllOff, err == nil)
	h.trail = append(h.trail, "lights:off")
	return nil
}

func (h *harness) WaitForDiscLoaded(ctx context.Context) (disc.DriveStatus, error) {
	h.waits++
	h.trail = append(h.trail, "wait")
	if len(h.waitErrs) > 0 {
		err := h.waitErrs[0]
		h.waitErrs = h.waitErrs[1:]
		return disc.DriveStatusNoDisc, err
	}
	if h.cycles == 0 {
		h.cancel()
		return disc.DriveStatusNoDisc, ctx.Err()
	}
	h.cycles--
	return disc.DriveStatusDiscOK, nil
}

func (h *harness) Eject(_ context.Context, device string) error {
	h.ejects++
	h.trail = append(h.trail, "eject")
	if device != h.cfg.Drive.Device {
		h.t.Errorf("eject device = %q, want %q", device, h.cfg.Drive.Device)
	}
	if h.ejectErr != nil {
		return h.ejectErr(h.ejects)
	}
	return nil
}

func (h *harness) NewRun() ripping.Result {
	return ripping.Result{
		RunID:     "run-1",
		OutputDir: filepath.Join(h.cfg.Paths.OutputDir, "piripper_01-02-2026_10-00-00"),
		StartedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		ExitCode:  -1,
	}
}

func (h *harness) Rip(_ context.Context, run ripping.Result) (ripping.Result, error) {
	h.trail = append(h.trail, "rip")
	if h.ripErr != nil {
		run.ExitCode = 2
		return run, h.ripErr
	}
	run.ExitCode = 0
	run.Duration = time.Minute
	return run, nil
}

func (h *harness) CopyFilesToStorage(context.Context) (offload.Report, error) {
	h.trail = append(h.trail, "offload")
	return h.report, h.offErr
}

func (h *harness) StartRip(_ context.Context, runID, outputDir, device string, _ time.Time) error {
	h.journal = append(h.journal, "start:"+runID+":"+filepath.Base(outputDir))
	return nil
}

func (h *harness) FinishRip(_ context.Context, runID string, exitCode int, ripErr error) error {
	h.journal = append(h.journal, fmt.Sprintf("finish:%s:%d:%t", runID, exitCode, ripErr != nil))
	return nil
}

func (h *harness) MarkOffloaded(_ context.Context, outputDir, storageDevice string, bytes int64) error {
	h.journal = append(h.journal, fmt.Sprintf("offloaded:%s:%s:%d", filepath.Base(outputDir), filepath.Base(storageDevice), bytes))
	return nil
}

func (h *harness) AbandonRunning(context.Context) (int64, error) { return 0, nil }

func (h *harness) SetPhase(_ context.Context, state history.DaemonState) error {
	if state.PID != os.Getpid() {
		h.t.Errorf("phase pid = %d, want %d", state.PID, os.Getpid())
	}
	h.journal = append(h.journal, "phase:"+state.Phase)
	return nil
}

func (h *harness) RecordFault(_ context.Context, fault history.Fault) error {
	h.journal = append(h.journal, fmt.Sprintf("fault:%s:%s:%s", fault.Stage, fault.Severity, fault.RunID))
	return nil
}

func (h *harness) NotifyRipStarted(context.Context, string) error {
	h.notified = append(h.notified, "rip_started")
	return nil
}

func (h *harness) NotifyRipCompleted(context.Context, string, time.Duration) error {
	h.notified = append(h.notified, "rip_completed")
	return nil
}

func (h *harness) NotifyOffloadCompleted(_ context.Context, _ string, runs int, _ int64, leftover int) error {
	note := fmt.Sprintf("offload_completed:%d", runs)
	if leftover > 0 {
		note += fmt.Sprintf(":leftover=%d", leftover)
	}
	h.notified = append(h.notified, note)
	return nil
}

func (h *harness) NotifyError(_ context.Context, _ error, label string) error {
	h.notified = append(h.notified, "error:"+label)
	return nil
}

func (h *harness) TestNotification(context.Context) error { return nil }

func (h *harness) run() error {
	h.t.Helper()
	d, err := daemon.New(h.cfg, daemon.Deps{
		Lights:    h,
		Waiter:    h,
		Ejector:   h,
		Ripper:    h,
		Offloader: h,
		Journal:   h,
		Notifier:  h,
	}, logging.NewNop())
	if err != nil {
		h.t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.cancel = cancel
	return d.Run(ctx)
}

func (h *harness) requireTrail(want ...string) {
	h.t.Helper()
	if !slices.Equal(h.trail, want) {
		h.t.Fatalf("call trail mismatch\n got: %s\nwant: %s", strings.Join(h.trail, " "), strings.Join(want, " "))
	}
}

func TestRunCompletesCycleAndStopsOnCancel(t *testing.T) {
	h := newHarness(t, 1)
	h.report = offload.Report{
		Device:      "/dev/sda1",
		DeviceFound: true,
		Moved:       []offload.Entry{{Name: "piripper_01-02-2026_10-00-00", Bytes: 2048}},
		BytesMoved:  2048,
	}

	if err := h.run(); err != nil {
		t.Fatalf("Run returned %v, want nil on cancel", err)
	}
	h.requireTrail("lights:init", "lights:off", "eject", "wait", "rip", "offload", "eject", "wait", "lights:off")

	if _, err := os.Stat(h.cfg.Paths.LockFile); !os.IsNotExist(err) {
		t.Fatalf("lock file should be removed on shutdown, stat err=%v", err)
	}
	for _, want := range []string{
		"start:run-1:piripper_01-02-2026_10-00-00",
		"finish:run-1:0:false",
		"offloaded:piripper_01-02-2026_10-00-00:sda1:2048",
		"phase:ripping",
		"phase:stopped",
	} {
		if !slices.Contains(h.journal, want) {
			t.Errorf("journal missing %q: %v", want, h.journal)
		}
	}
	if want := []string{"rip_started", "rip_completed", "offload_completed:1"}; !slices.Equal(h.notified, want) {
		t.Fatalf("notifications = %v, want %v", h.notified, want)
	}
	for _, dir := range []string{h.cfg.Paths.OutputDir, h.cfg.Paths.MountDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected %s to be created: %v", dir, err)
		}
	}
}

func TestRunExitsWithoutTouchingLightsWhenLockHeld(t *testing.T) {
	h := newHarness(t, 1)
	if err := os.MkdirAll(filepath.Dir(h.cfg.Paths.LockFile), 0o755); err != nil {
		t.Fatal(err)
	}
	other := flock.New(h.cfg.Paths.LockFile)
	ok, err := other.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-lock failed: ok=%v err=%v", ok, err)
	}
	t.Cleanup(func() { _ = other.Unlock() })

	err = h.run()
	if !errors.Is(err, faults.ErrAlreadyRunning) {
		t.Fatalf("Run error = %v, want ErrAlreadyRunning", err)
	}
	if len(h.trail) != 0 {
		t.Fatalf("lights must be left alone while another instance runs, got %v", h.trail)
	}
	if _, err := os.Stat(h.cfg.Paths.LockFile); err != nil {
		t.Fatalf("the other instance's lock file must survive: %v", err)
	}
	if len(h.journal) != 0 {
		t.Fatalf("nothing should be journaled without the lock, got %v", h.journal)
	}
}

func TestRipFailureLatchesErrorAndContinues(t *testing.T) {
	h := newHarness(t, 1)
	h.ripErr = faults.Wrap(faults.ErrExternalTool, "ripper", "ripit", "exit status 2", nil)

	if err := h.run(); err != nil {
		t.Fatalf("Run returned %v, want nil", err)
	}
	h.requireTrail("lights:init", "lights:off", "eject", "wait", "rip", "activity:false", "error:true", "offload", "eject", "wait", "lights:off")
	if !slices.Contains(h.journal, "finish:run-1:2:true") {
		t.Fatalf("failed rip not journaled: %v", h.journal)
	}
	if !slices.Contains(h.journal, "fault:rip:phase:run-1") {
		t.Fatalf("rip fault not journaled with its run id: %v", h.journal)
	}
	if !slices.Contains(h.notified, "error:rip") {
		t.Fatalf("expected error notification, got %v", h.notified)
	}
	if slices.Contains(h.notified, "rip_completed") {
		t.Fatalf("failed rip must not be reported complete: %v", h.notified)
	}
}

func TestShutdownRemovesLockBeforeLightsOff(t *testing.T) {
	h := newHarness(t, 0)

	if err := h.run(); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if want := []bool{true, false}; !slices.Equal(h.lockAtAllOff, want) {
		t.Fatalf("lock presence at AllOff = %v, want %v", h.lockAtAllOff, want)
	}
	phases := []string{}
	for _, entry := range h.journal {
		if strings.HasPrefix(entry, "phase:") {
			phases = append(phases, strings.TrimPrefix(entry, "phase:"))
		}
	}
	want := []string{"locked", "ejecting", "waiting_for_disc", "shutting_down", "stopped"}
	if !slices.Equal(phases, want) {
		t.Fatalf("phases = %v, want %v", phases, want)
	}
}

func TestSuccessfulRipClearsErrorWhenConfigured(t *testing.T) {
	h := newHarness(t, 1)
	h.cfg.Indicators.ClearErrorOnSuccess = true

	if err := h.run(); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	h.requireTrail("lights:init", "lights:off", "eject", "wait", "rip", "error:false", "offload", "eject", "wait", "lights:off")
}

func TestSuccessfulRipKeepsErrorLatchedWhenClearingDisabled(t *testing.T) {
	h := newHarness(t, 1)

	if err := h.run(); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if slices.Contains(h.trail, "error:false") {
		t.Fatalf("error light must stay latched: %v", h.trail)
	}
}

func TestDeviceErrorStopsDaemon(t *testing.T) {
	h := newHarness(t, 3)
	h.ejectErr = func(int) error {
		return faults.Wrap(faults.ErrDevice, "ejector", "open", "no such device", nil)
	}

	err := h.run()
	if !errors.Is(err, faults.ErrDevice) {
		t.Fatalf("Run error = %v, want ErrDevice", err)
	}
	h.requireTrail("lights:init", "lights:off", "eject", "activity:false", "error:true", "activity:false", "error:true")
	if _, statErr := os.Stat(h.cfg.Paths.LockFile); !os.IsNotExist(statErr) {
		t.Fatalf("lock must be released after a fatal error, stat err=%v", statErr)
	}
	if !slices.Contains(h.journal, "fault:eject:daemon:") {
		t.Fatalf("fatal eject fault not journaled: %v", h.journal)
	}
	if !slices.Contains(h.journal, "phase:stopped") {
		t.Fatalf("expected stopped phase after fatal exit: %v", h.journal)
	}
}

func TestStartupDirectoryFailureLeavesErrorLightOn(t *testing.T) {
	h := newHarness(t, 1)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	h.cfg.Paths.OutputDir = filepath.Join(blocker, "out")

	err := h.run()
	if !errors.Is(err, faults.ErrConfiguration) {
		t.Fatalf("Run error = %v, want ErrConfiguration", err)
	}
	if last := h.trail[len(h.trail)-1]; last != "error:true" {
		t.Fatalf("error light must end latched, trail %v", h.trail)
	}
	if slices.Contains(h.trail[2:], "lights:off") {
		t.Fatalf("lights must not be forced off after a fatal error: %v", h.trail)
	}
	if !slices.Contains(h.journal, "fault:startup:daemon:") {
		t.Fatalf("startup fault not journaled: %v", h.journal)
	}
}

func TestEjectFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, 1)
	h.ejectErr = func(call int) error {
		if call == 1 {
			return faults.Wrap(faults.ErrExternalTool, "ejector", "eject", "exit status 1", nil)
		}
		return nil
	}

	if err := h.run(); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	h.requireTrail("lights:init", "lights:off", "eject", "activity:false", "error:true", "wait", "rip", "offload", "eject", "wait", "lights:off")
}

func TestPollLimitKeepsWaiting(t *testing.T) {
	h := newHarness(t, 1)
	h.waitErrs = []error{faults.Wrap(faults.ErrPollLimit, "monitor", "wait", "no disc after 3 polls", nil)}

	if err := h.run(); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	h.requireTrail("lights:init", "lights:off", "eject", "wait", "wait", "rip", "offload", "eject", "wait", "lights:off")
	if slices.Contains(h.notified, "error:wait") {
		t.Fatalf("poll limit must not notify: %v", h.notified)
	}
}

func TestOffloadFailureIsReported(t *testing.T) {
	h := newHarness(t, 1)
	h.offErr = faults.Wrap(faults.ErrExternalTool, "offload", "mount", "exit status 32", nil)

	if err := h.run(); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	h.requireTrail("lights:init", "lights:off", "eject", "wait", "rip", "offload", "activity:false", "error:true", "eject", "wait", "lights:off")
	if !slices.Contains(h.notified, "error:offload") {
		t.Fatalf("expected offload error notification: %v", h.notified)
	}
	if !slices.Contains(h.journal, "fault:offload:phase:") {
		t.Fatalf("offload fault not journaled: %v", h.journal)
	}
}

func TestOffloadLeftoversReachNotification(t *testing.T) {
	h := newHarness(t, 1)
	h.report = offload.Report{
		Device:      "/dev/sda1",
		DeviceFound: true,
		Moved:       []offload.Entry{{Name: "piripper_01-02-2026_10-00-00", Bytes: 10}},
		Leftover:    []string{"piripper_01-02-2026_10-00-00"},
		BytesMoved:  10,
	}

	if err := h.run(); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if !slices.Contains(h.notified, "offload_completed:1:leftover=1") {
		t.Fatalf("leftover count not reported: %v", h.notified)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, daemon.Deps{}, nil); err == nil {
		t.Fatal("expected error for missing collaborators")
	}
	if _, err := daemon.New(nil, daemon.Deps{}, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}
