// Package offload moves finished rip output onto removable storage.
//
// When a USB block device such as /dev/sda1 is present, the offloader
// mounts it at the configured mount point, copies every run directory that
// is not already on the device, deletes the local copy once the copy has
// landed, and unmounts again. Source and destination usually live on
// different filesystems, so a move is a tree copy followed by a delete.
// With no device attached the step does nothing at all.
package offload
