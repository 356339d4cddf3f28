package disc

import (
	"errors"
	"os"
	"sync"
)

// scriptedDrive replays statuses in order, repeating the last one.
type scriptedDrive struct {
	mu       sync.Mutex
	statuses []DriveStatus
	err      error
	polls    int
	opens    int
	closed   bool
	onPoll   func(poll int)
}

func (d *scriptedDrive) opener() Opener {
	return func(string) (Drive, error) {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.opens++
		return d, nil
	}
}

func (d *scriptedDrive) Status() (DriveStatus, error) {
	d.mu.Lock()
	d.polls++
	poll := d.polls
	var status DriveStatus
	switch {
	case len(d.statuses) == 0:
		status = DriveStatusNoInfo
	case poll <= len(d.statuses):
		status = d.statuses[poll-1]
	default:
		status = d.statuses[len(d.statuses)-1]
	}
	hook := d.onPoll
	err := d.err
	d.mu.Unlock()
	if hook != nil {
		hook(poll)
	}
	return status, err
}

func (d *scriptedDrive) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("already closed")
	}
	d.closed = true
	return nil
}

func (d *scriptedDrive) pollCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.polls
}

func writeEmpty(path string) error {
	return os.WriteFile(path, nil, 0o600)
}
