package daemon_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"piripper/internal/daemon"
	"piripper/internal/faults"
)

func TestInstanceLockAcquireWritesPID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "lock")
	lock := daemon.NewInstanceLock(path)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = lock.Release() })

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != strconv.Itoa(os.Getpid()) {
		t.Fatalf("lock file pid = %q, want %d", got, os.Getpid())
	}

	held, pid, err := daemon.LockHolder(path)
	if err != nil {
		t.Fatalf("LockHolder: %v", err)
	}
	if !held || pid != os.Getpid() {
		t.Fatalf("LockHolder = (%v, %d), want (true, %d)", held, pid, os.Getpid())
	}
}

func TestInstanceLockRejectsSecondHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	first := daemon.NewInstanceLock(path)
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	t.Cleanup(func() { _ = first.Release() })

	second := daemon.NewInstanceLock(path)
	err := second.Acquire()
	if !errors.Is(err, faults.ErrAlreadyRunning) {
		t.Fatalf("second Acquire error = %v, want ErrAlreadyRunning", err)
	}
	if !strings.Contains(err.Error(), strconv.Itoa(os.Getpid())) {
		t.Fatalf("expected holder pid in %q", err)
	}
	if err := second.Release(); err != nil {
		t.Fatalf("Release of an unheld lock should be a no-op: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("failed acquire must not remove the holder's file: %v", err)
	}
}

func TestInstanceLockReleaseRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	lock := daemon.NewInstanceLock(path)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("lock file should be gone, stat err=%v", err)
	}
	held, _, err := daemon.LockHolder(path)
	if err != nil || held {
		t.Fatalf("LockHolder after release = (%v, %v)", held, err)
	}
}

func TestInstanceLockIgnoresStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock")
	if err := os.WriteFile(path, []byte("999999\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	held, _, err := daemon.LockHolder(path)
	if err != nil || held {
		t.Fatalf("stale file reported as held: held=%v err=%v", held, err)
	}

	lock := daemon.NewInstanceLock(path)
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire over stale file: %v", err)
	}
	_ = lock.Release()
}

func TestPhaseActive(t *testing.T) {
	for phase, want := range map[daemon.Phase]bool{
		daemon.PhaseRipping:        true,
		daemon.PhaseOffloading:     true,
		daemon.PhaseWaitingForDisc: true,
		daemon.PhaseStopped:        false,
		daemon.PhaseIdle:           false,
	} {
		if got := phase.Active(); got != want {
			t.Errorf("%s.Active() = %v, want %v", phase, got, want)
		}
	}
}
