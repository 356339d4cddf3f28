package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"piripper/internal/faults"
)

// InstanceLock guards against a second daemon process. It is an advisory
// flock on the lock file, so the kernel drops it when the holder dies and a
// file left behind by a crash never blocks the next start.
type InstanceLock struct {
	path string
	lock *flock.Flock
	held bool
}

// NewInstanceLock returns an unacquired lock on path.
func NewInstanceLock(path string) *InstanceLock {
	return &InstanceLock{path: path, lock: flock.New(path)}
}

// Path returns the lock file location.
func (l *InstanceLock) Path() string {
	return l.path
}

// Acquire takes the lock without blocking and writes the current PID into
// the lock file. A lock held by another process is ErrAlreadyRunning.
func (l *InstanceLock) Acquire() error {
	if l.held {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return faults.Wrap(faults.ErrConfiguration, "daemon", "create lock directory", filepath.Dir(l.path), err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return faults.Wrap(faults.ErrConfiguration, "daemon", "acquire lock", l.path, err)
	}
	if !ok {
		detail := l.path
		if pid, perr := readPID(l.path); perr == nil && pid > 0 {
			detail = fmt.Sprintf("%s held by pid %d", l.path, pid)
		}
		return faults.Wrap(faults.ErrAlreadyRunning, "daemon", "acquire lock", detail, nil)
	}
	l.held = true
	if err := os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		_ = l.lock.Unlock()
		l.held = false
		return faults.Wrap(faults.ErrConfiguration, "daemon", "write lock file", l.path, err)
	}
	return nil
}

// Release removes the lock file and then drops the flock.
func (l *InstanceLock) Release() error {
	if !l.held {
		return nil
	}
	var errs []error
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("remove lock file: %w", err))
	}
	if err := l.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("release lock: %w", err))
	}
	l.held = false
	return errors.Join(errs...)
}

// LockHolder reports whether a live process holds the lock at path and, if
// the lock file records one, its PID. It never creates the lock file.
func LockHolder(path string) (held bool, pid int, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		if os.IsNotExist(statErr) {
			return false, 0, nil
		}
		return false, 0, statErr
	}
	probe := flock.New(path)
	ok, err := probe.TryLock()
	if err != nil {
		return false, 0, err
	}
	if ok {
		_ = probe.Unlock()
		return false, 0, nil
	}
	pid, _ = readPID(path)
	return true, pid, nil
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
