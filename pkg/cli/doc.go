// Package cli implements the trapd command-line interface.
//
// The command tree is built on cobra. `serve` runs the capture server in
// the foreground or as a daemon, `stop` and `status` manage a running
// instance through its PID file, `init` and `validate` work on
// configuration files, `asn` exports announced-prefix block lists, and
// `version` reports build information.
//
// Configuration precedence is flags > TRAPD_* environment variables >
// config file > built-in defaults.
package cli
