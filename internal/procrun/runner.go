package procrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotStarted marks a program that could not be launched at all, such as a
// binary missing from PATH.
var ErrNotStarted = errors.New("process not started")

// maxOutput caps how much combined output is retained per invocation.
const maxOutput = 64 << 10

// Result captures the outcome of a program that was started.
type Result struct {
	Command  string
	ExitCode int
	Output   []byte
}

// Success reports whether the program exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Tail returns the last n lines of combined output, trimmed.
func (r Result) Tail(n int) string {
	text := strings.TrimSpace(string(r.Output))
	if text == "" || n <= 0 {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// Runner executes a program to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() ExecRunner {
	return ExecRunner{}
}

// Run starts name with args, waits for it, and returns its exit code and
// combined stdout/stderr. The returned error is non-nil only when the program
// could not be started or ctx ended the run.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	result := Result{Command: commandLine(name, args), ExitCode: -1}

	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output := &cappedBuffer{limit: maxOutput}
	cmd.Stdout = output
	cmd.Stderr = output

	if err := cmd.Start(); err != nil {
		return result, fmt.Errorf("%w: %s: %w", ErrNotStarted, name, err)
	}
	waitErr := cmd.Wait()
	result.Output = output.Bytes()
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s: %w", name, ctxErr)
	}
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return result, fmt.Errorf("wait %s: %w", name, waitErr)
	}
	return result, nil
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// cappedBuffer keeps the most recent limit bytes written to it.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	c.buf.Write(p)
	if over := c.buf.Len() - c.limit; over > 0 {
		c.buf.Next(over)
	}
	return n, nil
}

func (c *cappedBuffer) Bytes() []byte {
	return append([]byte(nil), c.buf.Bytes()...)
}
