package faults_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"piripper/internal/faults"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := faults.Wrap(faults.ErrExternalTool, "ripper", "ripit", "exit status 2", base)
	if !errors.Is(err, faults.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"ripper", "ripit", "exit status 2"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarkerDefaultsToExternalTool(t *testing.T) {
	err := faults.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, faults.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "failure") {
		t.Fatalf("expected placeholder detail, got %q", err)
	}
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want faults.Severity
	}{
		{"nil", nil, faults.SeverityRecoverable},
		{"tool failed", faults.Wrap(faults.ErrExternalTool, "ripper", "run", "", nil), faults.SeverityPhase},
		{"tool missing", faults.Wrap(faults.ErrToolMissing, "ripper", "run", "", nil), faults.SeverityPhase},
		{"copy", faults.Wrap(faults.ErrCopy, "offload", "copy", "", nil), faults.SeverityPhase},
		{"space", faults.Wrap(faults.ErrInsufficientSpace, "offload", "copy", "", nil), faults.SeverityPhase},
		{"device", faults.Wrap(faults.ErrDevice, "indicator", "write", "", nil), faults.SeverityDaemon},
		{"config", faults.Wrap(faults.ErrConfiguration, "daemon", "start", "", nil), faults.SeverityDaemon},
		{"running", faults.Wrap(faults.ErrAlreadyRunning, "daemon", "lock", "", nil), faults.SeverityDaemon},
		{"poll limit", faults.Wrap(faults.ErrPollLimit, "disc", "wait", "", nil), faults.SeverityRecoverable},
		{"canceled", fmt.Errorf("wait: %w", context.Canceled), faults.SeverityRecoverable},
		{"timed out rip", faults.Wrap(faults.ErrExternalTool, "ripper", "run", "", context.DeadlineExceeded), faults.SeverityPhase},
		{"unknown", errors.New("mystery"), faults.SeverityPhase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := faults.SeverityOf(tt.err); got != tt.want {
				t.Fatalf("SeverityOf(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestHintDistinguishesMissingToolFromFailure(t *testing.T) {
	missing := faults.Hint(faults.Wrap(faults.ErrToolMissing, "ripper", "", "", nil))
	failed := faults.Hint(faults.Wrap(faults.ErrExternalTool, "ripper", "", "", nil))
	if missing == failed {
		t.Fatalf("expected distinct hints, both were %q", missing)
	}
}
