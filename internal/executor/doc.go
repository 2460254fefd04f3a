// Package executor runs one command at a time in a terminal session and
// returns its cleaned output.
//
// Execute sends the command, waits for the shell prompt to come back,
// checks that the shell echoed the command, strips the echo and prompt,
// and renders the remaining control sequences with ansi.Clean. An optional
// review gate sees every command first.
package executor
