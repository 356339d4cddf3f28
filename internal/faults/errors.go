package faults

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool      = errors.New("external tool failed")
	ErrToolMissing       = errors.New("external tool unavailable")
	ErrDevice            = errors.New("device error")
	ErrConfiguration     = errors.New("configuration error")
	ErrAlreadyRunning    = errors.New("already running")
	ErrInsufficientSpace = errors.New("insufficient space")
	ErrCopy              = errors.New("copy failed")
	ErrPollLimit         = errors.New("poll limit reached")
)

// Severity classifies how the daemon reacts to an error.
type Severity int

const (
	// SeverityRecoverable errors are logged and otherwise ignored.
	SeverityRecoverable Severity = iota
	// SeverityPhase errors latch the error indicator and abandon the
	// current phase; the loop continues with the next stage.
	SeverityPhase
	// SeverityDaemon errors latch the error indicator and stop the daemon.
	SeverityDaemon
)

func (s Severity) String() string {
	switch s {
	case SeverityRecoverable:
		return "recoverable"
	case SeverityPhase:
		return "phase"
	case SeverityDaemon:
		return "daemon"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// SeverityOf maps an error to the daemon's reaction. Bare context
// cancellation is recoverable since shutdown is driven by the caller; a
// cancellation already tagged with a marker keeps the marker's severity.
func SeverityOf(err error) Severity {
	switch {
	case err == nil:
		return SeverityRecoverable
	case errors.Is(err, ErrDevice), errors.Is(err, ErrConfiguration), errors.Is(err, ErrAlreadyRunning):
		return SeverityDaemon
	case errors.Is(err, ErrPollLimit):
		return SeverityRecoverable
	case errors.Is(err, ErrExternalTool), errors.Is(err, ErrToolMissing),
		errors.Is(err, ErrCopy), errors.Is(err, ErrInsufficientSpace):
		return SeverityPhase
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return SeverityRecoverable
	default:
		return SeverityPhase
	}
}

// Hint returns the operator-facing next step for an error.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrToolMissing):
		return "install the tool or fix its path in the [ripit]/[tools] config sections"
	case errors.Is(err, ErrExternalTool):
		return "inspect the tool output in the log; check the disc surface or storage device"
	case errors.Is(err, ErrDevice):
		return "check the device path and permissions (drive node, LED sysfs attributes)"
	case errors.Is(err, ErrAlreadyRunning):
		return "stop the other piripper instance before starting a new one"
	case errors.Is(err, ErrInsufficientSpace):
		return "free space on the removable storage or swap it for a larger device"
	case errors.Is(err, ErrCopy):
		return "check the removable storage filesystem; the local rip output was kept"
	case errors.Is(err, ErrPollLimit):
		return "insert a disc or raise drive.max_polls"
	default:
		return "check logs for details"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{component, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
