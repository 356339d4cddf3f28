// Package faults defines the error markers and severity taxonomy shared by
// every piripper component.
//
// Components wrap failures with Wrap and one of the exported markers; the
// daemon's fault path calls SeverityOf to decide whether to only log, to
// latch the error indicator and continue with the next stage, or to stop
// the daemon.
package faults
