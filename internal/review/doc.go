// Package review decides whether a command may run before it reaches the
// shell.
//
// A Gate returns a Decision to proceed, run a replacement command, or
// abort. Human asks an operator on a terminal, Policy applies rules from a
// YAML or TOML file and Always returns a fixed answer.
package review
