// Package daemon runs the piripper rip loop.
//
// It owns the process lifecycle: the single-instance lock, the startup
// sequence (lights off, lock, directories, initial eject), and the endless
// wait, rip, offload, eject cycle. Every error from a stage goes through
// one fault path that classifies it by severity, lights the error
// indicator, and either carries on with the next stage or stops the
// daemon. Shutdown always removes the lock file first and then forces both
// lights off, whichever phase was interrupted.
//
// Keep orchestration logic here: what a stage actually does lives in its
// own package while the daemon only sequences and contains failures.
package daemon
