// Package terminal runs an interactive shell on a pseudo-terminal and frames
// its output one command at a time.
//
// There is no structured end-of-command marker in an interactive shell. The
// session captures the shell's idle prompt once at startup and afterwards
// treats "the transcript ends with that prompt" as "the command finished".
//
// Architecture:
//   - The shell is spawned with creack/pty so it behaves interactively
//     (echo, line buffering, prompt emission)
//   - A background goroutine drains the PTY into a Buffer
//   - ReadAvailable hands out at most ReadChunkSize bytes of buffered output
//   - ReadUntilPrompt polls until the prompt reappears or the command
//     timeout expires
//
// Example Usage:
//
//	sess, err := terminal.Start(ctx, terminal.Options{Shell: "/bin/bash"})
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//
//	if err := sess.SendLine("ls"); err != nil {
//	    return err
//	}
//	raw, err := sess.ReadUntilPrompt(ctx)
//	// raw == "ls\r\nMakefile\r\n" + sess.Prompt()
//
// A timeout leaves the shell in an unknown state. The session refuses all
// further commands with ErrSessionUnusable; start a new one instead.
package terminal
