package disc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"piripper/internal/config"
	"piripper/internal/faults"
	"piripper/internal/logging"
)

// Monitor blocks until the configured drive holds a readable disc.
type Monitor struct {
	Device   string
	Interval time.Duration
	// MaxPolls bounds the wait; zero polls forever.
	MaxPolls int
	// Wake, when set, ends a poll sleep early. The drive is still queried
	// before any decision is made.
	Wake <-chan struct{}
	Open Opener

	logger *slog.Logger
}

// NewMonitor builds a monitor from the [drive] config section.
func NewMonitor(cfg *config.Config, logger *slog.Logger) *Monitor {
	return &Monitor{
		Device:   cfg.Drive.Device,
		Interval: cfg.PollInterval(),
		MaxPolls: cfg.Drive.MaxPolls,
		Open:     OpenDrive,
		logger:   logging.NewComponentLogger(logger, "drive-monitor"),
	}
}

// WaitForDiscLoaded opens the drive once and polls it until the status is
// disc_ok. It returns exactly at the first disc_ok poll. Cancelling ctx or
// exhausting MaxPolls ends the wait with an error. The handle is always
// closed.
func (m *Monitor) WaitForDiscLoaded(ctx context.Context) (DriveStatus, error) {
	open := m.Open
	if open == nil {
		open = OpenDrive
	}
	logger := m.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	interval := m.Interval
	if interval <= 0 {
		interval = time.Second
	}

	drive, err := open(m.Device)
	if err != nil {
		return DriveStatusNoInfo, err
	}
	defer func() {
		if cerr := drive.Close(); cerr != nil {
			logger.Debug("drive close failed", logging.String(logging.FieldDevice, m.Device), logging.Error(cerr))
		}
	}()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	last := DriveStatusNoInfo
	for polls := 1; ; polls++ {
		status, err := drive.Status()
		if err != nil {
			return status, err
		}
		if status != last {
			logger.Debug("drive status changed",
				logging.String(logging.FieldDevice, m.Device),
				logging.String("status", status.String()),
			)
		}
		last = status
		if status == DriveStatusDiscOK {
			logger.Info("disc loaded",
				logging.String(logging.FieldEventType, "disc_loaded"),
				logging.String(logging.FieldDevice, m.Device),
				logging.Int("polls", polls),
			)
			return status, nil
		}
		if m.MaxPolls > 0 && polls >= m.MaxPolls {
			return last, faults.Wrap(faults.ErrPollLimit, "disc", "wait for disc",
				fmt.Sprintf("%s not ready after %d polls (last status: %s)", m.Device, polls, last), nil)
		}

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-timer.C:
		case <-m.Wake:
			timer.Stop()
			logger.Debug("poll sleep interrupted by media event", logging.String(logging.FieldDevice, m.Device))
		}
	}
}
