// Package notifications pushes short status messages to an ntfy topic.
//
// With no topic configured the service is a no-op, so callers never need
// to check whether notifications are enabled. Delivery failures are
// returned to the caller, which logs them; they never affect the rip loop.
package notifications
