// Package logging assembles structured slog loggers and formatting helpers used
// across piripper.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes helpers that tag log lines with the component, the
// daemon phase, and the rip run ID. A no-op logger is provided for tests and
// wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same shape.
package logging
