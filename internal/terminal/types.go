package terminal

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/zterm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zterm/internal/logging"
)

// Options configures a session.
type Options struct {
	// Shell is the shell executable. Defaults to /bin/bash, or /bin/sh when
	// bash is not installed.
	Shell string
	// Args are passed to the shell.
	Args []string
	// Env is appended to the inherited environment.
	Env []string
	// Term is the TERM value given to the shell.
	Term string
	// PS1 overrides the shell prompt when set.
	PS1 string
	// RCFiles lets the shell read its startup files, which may replace PS1
	// with a prompt that changes after cd.
	RCFiles bool
	// WorkDir is the shell's initial working directory.
	WorkDir string

	Cols int
	Rows int

	// PollInterval is the pause between reads while waiting for the prompt.
	PollInterval time.Duration
	// ReadChunkSize caps the bytes returned by one ReadAvailable call.
	ReadChunkSize int
	// StartupTimeout bounds the wait for the initial prompt.
	StartupTimeout time.Duration
	// CommandTimeout bounds the wait for the prompt after a command.
	CommandTimeout time.Duration
	// BufferLimit caps unread output; the oldest bytes are dropped past it.
	BufferLimit int

	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
	Recorder Recorder
}

// Recorder receives everything written to and read from the shell.
type Recorder interface {
	RecordInput(data string) error
	RecordOutput(data string) error
}

const (
	defaultShell         = "/bin/bash"
	fallbackShell        = "/bin/sh"
	defaultTerm          = "xterm-256color"
	defaultPollInterval  = 100 * time.Millisecond
	defaultReadChunkSize = 1000
	defaultBufferLimit   = 16 * 1024 * 1024
)

func (o Options) withDefaults() Options {
	if o.Term == "" {
		o.Term = defaultTerm
	}
	if o.Cols <= 0 {
		o.Cols = 80
	}
	if o.Rows <= 0 {
		o.Rows = 24
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	if o.ReadChunkSize <= 0 {
		o.ReadChunkSize = defaultReadChunkSize
	}
	if o.StartupTimeout <= 0 {
		o.StartupTimeout = 5 * time.Second
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = 30 * time.Second
	}
	if o.BufferLimit <= 0 {
		o.BufferLimit = defaultBufferLimit
	}
	o.Logger = logging.OrNop(o.Logger)
	return o
}

// Buffer is a thread-safe FIFO of shell output. The PTY reader writes to it
// and the session drains it chunk by chunk.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	limit  int
	err    error
	notify chan struct{}
}

// NewBuffer creates a buffer holding at most limit unread bytes
func NewBuffer(limit int) *Buffer {
	return &Buffer{
		limit:  limit,
		notify: make(chan struct{}, 1),
	}
}

// Write appends data to the buffer. When the limit is exceeded the oldest
// bytes are dropped.
func (b *Buffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	b.data = append(b.data, p...)
	if b.limit > 0 && len(b.data) > b.limit {
		b.data = append(b.data[:0], b.data[len(b.data)-b.limit:]...)
	}
	b.mu.Unlock()

	b.signal()
	return len(p), nil
}

// CloseWithError marks the end of output. Next reports err once the
// remaining data is drained.
func (b *Buffer) CloseWithError(err error) {
	b.mu.Lock()
	if b.err == nil {
		b.err = err
	}
	b.mu.Unlock()

	b.signal()
}

// Next removes and returns up to max bytes. With nothing buffered it
// returns the close error, which is nil while the writer is still open.
func (b *Buffer) Next(max int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.data) == 0 {
		return nil, b.err
	}
	if max <= 0 || max > len(b.data) {
		max = len(b.data)
	}

	chunk := make([]byte, max)
	copy(chunk, b.data[:max])
	b.data = b.data[max:]
	return chunk, nil
}

// Len returns the number of unread bytes
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Wait returns a channel that receives after new data or a close.
func (b *Buffer) Wait() <-chan struct{} {
	return b.notify
}

func (b *Buffer) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// Info is the public representation of a session
type Info struct {
	ID        string    `json:"id"`
	Shell     string    `json:"shell"`
	PID       int       `json:"pid"`
	Prompt    string    `json:"prompt"`
	Cols      int       `json:"cols"`
	Rows      int       `json:"rows"`
	StartedAt time.Time `json:"started_at"`
	Active    bool      `json:"active"`
}
