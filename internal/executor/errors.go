package executor

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/zterm/internal/terminal"
)

var (
	// ErrEchoMismatch is returned when the transcript does not start with
	// the echoed command. This usually means non-ASCII input was mangled by
	// the terminal's line editing.
	ErrEchoMismatch = errors.New("shell did not echo the command")

	// ErrReviewAborted is returned when the review gate stops a command.
	ErrReviewAborted = errors.New("command aborted by review")

	// ErrMultilineCommand is returned for commands containing a line break.
	ErrMultilineCommand = errors.New("command spans multiple lines")
)

// EchoMismatchError carries the raw transcript of a command whose echo
// could not be found.
type EchoMismatchError struct {
	Command    string
	Transcript string
}

func (e *EchoMismatchError) Error() string {
	return fmt.Sprintf("transcript does not start with command %q (is non-ASCII terminal input involved?):\n\n%s",
		e.Command, e.Transcript)
}

func (e *EchoMismatchError) Unwrap() error {
	return ErrEchoMismatch
}

// ReviewAbortedError reports which command the gate stopped and why.
type ReviewAbortedError struct {
	Command string
	Reason  string
}

func (e *ReviewAbortedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("command %q aborted by review", e.Command)
	}
	return fmt.Sprintf("command %q aborted by review: %s", e.Command, e.Reason)
}

func (e *ReviewAbortedError) Unwrap() error {
	return ErrReviewAborted
}

// IsFatal reports whether err leaves the session unusable. Callers should
// close the session and start a new one.
func IsFatal(err error) bool {
	return errors.Is(err, terminal.ErrTimeout) ||
		errors.Is(err, ErrEchoMismatch) ||
		errors.Is(err, terminal.ErrSessionUnusable) ||
		errors.Is(err, terminal.ErrSessionClosed) ||
		errors.Is(err, terminal.ErrShellExited)
}
