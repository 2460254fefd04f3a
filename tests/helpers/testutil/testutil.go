// Package testutil provides testing utilities and helpers for zterm tests.
package testutil

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/zterm/internal/review"
)

// DefaultPrompt is the prompt printed by FakeShell unless overridden.
const DefaultPrompt = "user@host:~$ "

// Responder produces the output of one command line. Returning ok=false
// simulates a command that never gives the prompt back.
type Responder func(command string) (output string, ok bool)

// FakeShell is an in-memory stand-in for a PTY running an interactive
// shell. Every line written to it is echoed back with a CRLF, followed by
// the responder's output and the prompt.
type FakeShell struct {
	prompt  string
	banner  string
	respond Responder
	echo    func(string) string

	mu      sync.Mutex
	cond    *sync.Cond
	pending []byte
	partial string
	inputs  []string
	closed  bool
}

// FakeShellOption configures a FakeShell.
type FakeShellOption func(*FakeShell)

// WithPrompt sets the prompt printed after startup and after each command.
func WithPrompt(prompt string) FakeShellOption {
	return func(f *FakeShell) { f.prompt = prompt }
}

// WithBanner sets text printed before the first prompt.
func WithBanner(banner string) FakeShellOption {
	return func(f *FakeShell) { f.banner = banner }
}

// WithResponder sets how commands are answered.
func WithResponder(r Responder) FakeShellOption {
	return func(f *FakeShell) { f.respond = r }
}

// WithEcho replaces the echo of each command line, for example to
// simulate line editing that mangles non-ASCII input.
func WithEcho(echo func(string) string) FakeShellOption {
	return func(f *FakeShell) { f.echo = echo }
}

// Outputs answers commands from a fixed table. Unknown commands print
// nothing.
func Outputs(table map[string]string) Responder {
	return func(command string) (string, bool) {
		return table[command], true
	}
}

// NewFakeShell creates a fake shell that has already printed its banner
// and prompt.
func NewFakeShell(t *testing.T, opts ...FakeShellOption) *FakeShell {
	t.Helper()

	f := &FakeShell{
		prompt:  DefaultPrompt,
		respond: Outputs(nil),
		echo:    func(s string) string { return s },
	}
	f.cond = sync.NewCond(&f.mu)
	for _, opt := range opts {
		opt(f)
	}

	f.emit(f.banner + f.prompt)
	t.Cleanup(func() { f.Close() })
	return f
}

// Read blocks until output is available or the shell is closed.
func (f *FakeShell) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.pending) == 0 && !f.closed {
		f.cond.Wait()
	}
	if len(f.pending) == 0 {
		return 0, io.EOF
	}

	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

// Write feeds keyboard input. Complete lines are answered immediately.
func (f *FakeShell) Write(p []byte) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	f.partial += string(p)
	var lines []string
	for {
		i := strings.IndexByte(f.partial, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, f.partial[:i])
		f.partial = f.partial[i+1:]
	}
	f.inputs = append(f.inputs, lines...)
	f.mu.Unlock()

	for _, line := range lines {
		out, ok := f.respond(line)
		reply := f.echo(line) + "\r\n" + toCRLF(out)
		if ok {
			reply += f.prompt
		}
		f.emit(reply)
	}
	return len(p), nil
}

// Close ends the output stream. Pending output is still readable.
func (f *FakeShell) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	f.cond.Broadcast()
	return nil
}

// Emit appends raw output as if the shell printed it unprompted.
func (f *FakeShell) Emit(s string) {
	f.emit(s)
}

// Inputs returns every complete line written so far.
func (f *FakeShell) Inputs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inputs...)
}

func (f *FakeShell) emit(s string) {
	if s == "" {
		return
	}
	f.mu.Lock()
	f.pending = append(f.pending, s...)
	f.mu.Unlock()

	f.cond.Broadcast()
}

// toCRLF applies the terminal's output newline translation.
func toCRLF(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\n", "\r\n")
}

// MockGate is a mock implementation of review.Gate for testing.
type MockGate struct {
	mock.Mock
}

// Review mocks the Review method.
func (m *MockGate) Review(ctx context.Context, command string) (review.Decision, error) {
	args := m.Called(ctx, command)
	return args.Get(0).(review.Decision), args.Error(1)
}

// NewMockGate creates a mock gate that approves every command by default.
func NewMockGate(t *testing.T) *MockGate {
	t.Helper()
	m := new(MockGate)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// ApproveAll makes the gate proceed with whatever command it is given.
func (m *MockGate) ApproveAll() *MockGate {
	m.On("Review", mock.Anything, mock.Anything).
		Return(review.Decision{Action: review.Proceed}, nil).
		Maybe()
	return m
}
