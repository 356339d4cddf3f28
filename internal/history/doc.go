// Package history persists a journal of rips and the daemon's current phase
// in SQLite.
//
// The daemon writes one row per rip as it moves through ripping, ripped or
// failed, and offloaded, and keeps a single state row describing what it
// is doing right now. The CLI reads both to answer `piripper status` and
// `piripper history` without talking to the running process. Nothing in
// the rip loop depends on this package succeeding: write failures are
// logged by the caller and otherwise ignored.
package history
