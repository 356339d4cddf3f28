// Package procrun runs external programs and reports their exit status.
//
// Every collaborator piripper shells out to (ripit, eject, mount, umount)
// goes through the Runner interface so tests can script exit codes without
// real hardware. A program that cannot be started is reported as an error
// wrapping ErrNotStarted; a program that ran and exited non-zero is not an
// error at this layer, callers inspect Result.ExitCode.
package procrun
