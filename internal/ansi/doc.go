// Package ansi reduces raw terminal output to the text a person would read.
//
// Programs running on a PTY decorate their output with carriage returns,
// color codes and cursor movement. The interpreter in this package does not
// emulate a screen; it flattens the stream into a scroll of final lines:
//
//   - Carriage return: text before it on the same line is discarded
//     (progress bars overwriting themselves).
//   - SGR (ESC [ ... m): removed.
//   - Cursor up (ESC [ N A): removed, and the last N finished lines are
//     dropped so a redrawn block replaces the old one.
//   - Erase in line / display (ESC [ N K, ESC [ N J): removed.
//   - OSC (ESC ] ... BEL): removed (window titles, cwd reports).
//   - Anything else recognizable as a control sequence: removed.
//
// Escape prefixes are accepted both as the raw ESC byte and in their textual
// forms (\x1b, \033, \u001b, \e), since scripts frequently print the latter
// without interpretation.
//
// Example Usage:
//
//	out := ansi.Clean("\x1b[32mok\x1b[0m\rdone\n")
//	// → "done\n"
//
// Clean never fails. A malformed sequence is left in the text as-is.
package ansi
