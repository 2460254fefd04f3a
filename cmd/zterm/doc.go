// Package main is the zterm command line tool.
//
// zterm drives an interactive shell through a pseudo-terminal and prints
// the output of each command as a reader would see it, with control
// sequences rendered away.
//
// Usage:
//
//	# Run commands from stdin, asking before each one
//	zterm run --safe
//
//	# Run commands from arguments in one shell, recording the session
//	zterm exec --yes --record session.cast.gz "cd src" "make test"
//
//	# Replay a recording and print the cleaned outputs
//	zterm replay session.cast.gz
//
//	# Render control sequences in captured output
//	script -q -c make /dev/null | zterm clean
//
// Configuration:
//   - Environment variables (ZTERM_*, LOG_LEVEL, LOG_DEV, METRICS_ADDR)
//   - CLI flags (override env vars)
//
// Signals:
//   - SIGINT, SIGTERM: close the shell and exit
package main
