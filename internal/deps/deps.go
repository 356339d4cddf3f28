// Package deps checks that the external programs piripper shells out to are
// installed.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"piripper/internal/faults"
)

// Requirement names one external program and how much the daemon needs it.
type Requirement struct {
	Name        string
	Command     string
	Description string
	// Optional programs only disable a feature when missing.
	Optional bool
}

// Status is the lookup result for one Requirement.
type Status struct {
	Requirement
	Available bool
	// Path is the resolved executable when Available.
	Path   string
	Detail string
}

// CheckBinaries resolves each requirement. Bare names go through PATH;
// anything containing a slash must be an existing executable file.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		req.Description = strings.TrimSpace(req.Description)
		results = append(results, resolve(req))
	}
	return results
}

func resolve(req Requirement) Status {
	status := Status{Requirement: req}
	if req.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	if strings.ContainsRune(req.Command, '/') {
		info, err := os.Stat(req.Command)
		switch {
		case err != nil:
			status.Detail = fmt.Sprintf("%s not found", req.Command)
		case info.IsDir() || info.Mode().Perm()&0o111 == 0:
			status.Detail = fmt.Sprintf("%s is not executable", req.Command)
		default:
			status.Available = true
			status.Path = req.Command
		}
		return status
	}
	path, err := exec.LookPath(req.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found on PATH", req.Command)
		return status
	}
	status.Available = true
	status.Path = path
	return status
}

// MissingRequired returns the names of required programs that are not
// available.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

// MissingError is nil when every required program resolved and an
// ErrToolMissing error naming the absentees otherwise.
func MissingError(statuses []Status) error {
	missing := MissingRequired(statuses)
	if len(missing) == 0 {
		return nil
	}
	return faults.Wrap(faults.ErrToolMissing, "deps", "check binaries", strings.Join(missing, ", "), nil)
}
