package terminal

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the terminal package.
var (
	// ErrTimeout is returned when the shell does not print its prompt again
	// within the command timeout.
	ErrTimeout = errors.New("shell prompt did not return")

	// ErrNoOutput is returned by ReadAvailable when nothing arrived in time.
	ErrNoOutput = errors.New("no output available")

	// ErrNoPrompt is returned when the idle prompt cannot be captured at startup.
	ErrNoPrompt = errors.New("could not capture shell prompt")

	// ErrSessionClosed is returned when operations are attempted on a closed session.
	ErrSessionClosed = errors.New("terminal session is closed")

	// ErrSessionUnusable is returned for every call after a fatal read failure.
	ErrSessionUnusable = errors.New("terminal session is unusable")

	// ErrShellExited is returned when the shell process ended.
	ErrShellExited = errors.New("shell exited")

	// ErrShellNotFound is returned when the shell executable is not found.
	ErrShellNotFound = errors.New("shell not found")
)

// TimeoutError carries the partial transcript of a command whose prompt
// never came back.
type TimeoutError struct {
	Prompt     string
	Transcript string
	Elapsed    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("terminal output does not end with prompt %q after %s:\n\n%s",
		e.Prompt, e.Elapsed.Round(time.Millisecond), e.Transcript)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}
