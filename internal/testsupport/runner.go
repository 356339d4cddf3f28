package testsupport

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"piripper/internal/procrun"
)

// Call records one program invocation seen by a Runner.
type Call struct {
	Name string
	Args []string
}

// String renders the call as a command line.
func (c Call) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Response scripts the outcome of an invocation.
type Response struct {
	ExitCode int
	Output   string
	// Missing simulates a binary that cannot be launched.
	Missing bool
	// Do runs before the result is returned, letting tests create rip
	// output or observe side effects at call time.
	Do func(ctx context.Context, args []string) error
}

// Runner is a scripted procrun.Runner. Responses are keyed by program name;
// unscripted programs exit zero.
type Runner struct {
	mu        sync.Mutex
	Responses map[string]Response
	calls     []Call
}

// NewRunner returns a Runner with no scripted responses.
func NewRunner() *Runner {
	return &Runner{Responses: map[string]Response{}}
}

// On scripts the response for program name and returns r for chaining.
func (r *Runner) On(name string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Responses[name] = resp
	return r
}

func (r *Runner) Run(ctx context.Context, name string, args ...string) (procrun.Result, error) {
	r.mu.Lock()
	call := Call{Name: name, Args: append([]string(nil), args...)}
	r.calls = append(r.calls, call)
	resp := r.Responses[name]
	r.mu.Unlock()

	result := procrun.Result{Command: call.String(), ExitCode: -1}
	if resp.Missing {
		return result, fmt.Errorf("%w: %s: executable file not found in $PATH", procrun.ErrNotStarted, name)
	}
	if resp.Do != nil {
		if err := resp.Do(ctx, args); err != nil {
			return result, err
		}
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	result.ExitCode = resp.ExitCode
	result.Output = []byte(resp.Output)
	return result, nil
}

// Calls returns a copy of every invocation so far.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Names returns the program names invoked so far, in order.
func (r *Runner) Names() []string {
	calls := r.Calls()
	names := make([]string, len(calls))
	for i, c := range calls {
		names[i] = c.Name
	}
	return names
}

// CallsTo returns the invocations of program name.
func (r *Runner) CallsTo(name string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
