// Package workdir keeps the wrapper process in the same working directory
// as the shell it drives.
//
// After each command the Tracker asks the operating system for the shell's
// current directory. Where that is not possible it falls back to reading
// the command itself, recognizing the plain form "cd <dir>".
package workdir
