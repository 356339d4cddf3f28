package disc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"piripper/internal/logging"
)

// UdevWaker listens for udev netlink media events on one drive and signals
// Wake when media appears. It never decides anything on its own; the monitor
// confirms every wake-up with a status query.
type UdevWaker struct {
	device string
	logger *slog.Logger
	wake   chan struct{}

	// dial opens the uevent socket.
	dial func() (*netlink.UEventConn, error)

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

func dialUdev() (*netlink.UEventConn, error) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, err
	}
	return conn, nil
}

// NewUdevWaker creates a waker for device (for example /dev/sr0).
func NewUdevWaker(device string, logger *slog.Logger) *UdevWaker {
	return &UdevWaker{
		device: strings.TrimSpace(device),
		logger: logging.NewComponentLogger(logger, "udev-waker"),
		wake:   make(chan struct{}, 1),
		dial:   dialUdev,
	}
}

// Wake returns the channel signalled on matching media events.
func (w *UdevWaker) Wake() <-chan struct{} {
	if w == nil {
		return nil
	}
	return w.wake
}

// Start connects to the kernel uevent socket. A connect failure is returned
// and leaves the waker idle; the caller falls back to plain polling.
func (w *UdevWaker) Start(ctx context.Context) error {
	if w == nil || w.device == "" {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	conn, err := w.dial()
	if err != nil {
		return fmt.Errorf("connect netlink socket: %w", err)
	}

	w.conn = conn
	w.quit = make(chan struct{})
	w.running = true

	go w.loop(ctx, conn, w.quit)

	w.logger.Info("udev waker started",
		logging.String(logging.FieldEventType, "udev_waker_started"),
		logging.String(logging.FieldDevice, w.device),
	)
	return nil
}

// Stop closes the netlink socket.
func (w *UdevWaker) Stop() {
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.quit)
	w.quit = nil
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	w.running = false
}

func (w *UdevWaker) loop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, mediaMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			w.handle(uevent)
		case err := <-errs:
			logging.WarnWithContext(w.logger, "netlink monitor error", "netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "disc detection waits for the next poll"),
			)
		}
	}
}

// mediaMatcher matches SUBSYSTEM=block, ID_CDROM=1, ID_CDROM_MEDIA=1,
// ACTION=change|add.
func mediaMatcher() netlink.Matcher {
	action := "change|add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":      "block",
			"ID_CDROM":       "1",
			"ID_CDROM_MEDIA": "1",
		},
	})
	return rules
}

func (w *UdevWaker) handle(uevent netlink.UEvent) {
	devname := deviceName(uevent)
	if devname == "" || devname != w.device {
		return
	}
	w.logger.Debug("media event",
		logging.String(logging.FieldDevice, devname),
		logging.String("action", string(uevent.Action)),
	)
	w.signal()
}

// signal performs a non-blocking send; a pending wake-up already covers
// this event.
func (w *UdevWaker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// deviceName gets the device path from a uevent.
func deviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			return "/dev/" + devname
		}
		return devname
	}

	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
