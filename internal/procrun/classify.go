package procrun

import (
	"errors"
	"fmt"

	"piripper/internal/faults"
)

// Classify turns a Run outcome into a tagged error. A program that never
// started is ErrToolMissing; a non-zero exit is ErrExternalTool carrying the
// exit code and output tail. Context errors pass through untagged so the
// caller sees a plain cancellation.
func Classify(component, operation string, result Result, err error) error {
	switch {
	case err != nil && errors.Is(err, ErrNotStarted):
		return faults.Wrap(faults.ErrToolMissing, component, operation, result.Command, err)
	case err != nil:
		return err
	case !result.Success():
		msg := fmt.Sprintf("%s exited %d", result.Command, result.ExitCode)
		if tail := result.Tail(3); tail != "" {
			msg += ": " + tail
		}
		return faults.Wrap(faults.ErrExternalTool, component, operation, msg, nil)
	default:
		return nil
	}
}
