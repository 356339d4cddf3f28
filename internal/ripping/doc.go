// Package ripping runs the external ripit tool against the inserted disc.
//
// Each run writes into its own timestamped directory under the rip-output
// root, named with the daemon's run prefix so the offloader can recognise
// it later. The activity light is lit for exactly as long as ripit runs.
// A binary that cannot be launched and a rip that exits non-zero are
// reported as distinct errors; the caller routes both to the fault path.
package ripping
