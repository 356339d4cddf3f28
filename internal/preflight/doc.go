// Package preflight runs quick environment checks before the daemon starts
// and for `piripper status`: directory permissions, the drive node, the
// indicator attributes, and the external tools.
package preflight
