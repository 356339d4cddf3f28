// Package main implements the piripper command: the ripping daemon itself
// plus small operator commands for status, history, config, indicators,
// and notifications.
package main
