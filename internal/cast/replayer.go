package cast

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

var (
	// ErrReplayExhausted is returned when input is written after the last
	// recorded input event.
	ErrReplayExhausted = errors.New("replay has no more recorded input")
)

// DivergenceError is returned when the input written to a Replayer is not
// what was recorded.
type DivergenceError struct {
	Want string
	Got  string
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("replay diverged: recorded input %q, got %q", e.Want, e.Got)
}

// Replayer plays a cast back as a PTY connection. Output up to the first
// input event is readable immediately; every write must match the next
// recorded input and releases the output that followed it. Timing is not
// reproduced.
type Replayer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	events  []Event
	pos     int
	pending []byte
	closed  bool
}

// NewReplayer creates a replayer for c.
func NewReplayer(c *Cast) *Replayer {
	r := &Replayer{events: c.Events}
	r.cond = sync.NewCond(&r.mu)
	r.release()
	return r
}

// Read returns released output. It blocks while the recording waits for
// input and returns io.EOF once everything has been read.
func (r *Replayer) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.pending) == 0 && !r.closed && r.pos < len(r.events) {
		r.cond.Wait()
	}
	if len(r.pending) == 0 {
		return 0, io.EOF
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// Write consumes the next recorded input events, which must add up to p.
func (r *Replayer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, io.ErrClosedPipe
	}
	if r.pos >= len(r.events) {
		return 0, ErrReplayExhausted
	}

	got := string(p)
	var want strings.Builder
	for r.pos < len(r.events) && r.events[r.pos].Type == Input && want.Len() < len(got) {
		want.WriteString(r.events[r.pos].Data)
		r.pos++
	}
	if want.String() != got {
		return 0, &DivergenceError{Want: want.String(), Got: got}
	}

	r.release()
	return len(p), nil
}

// Close unblocks readers; further reads return io.EOF.
func (r *Replayer) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cond.Broadcast()
	return nil
}

// release queues output events up to the next input event. Callers hold
// r.mu except during construction.
func (r *Replayer) release() {
	for r.pos < len(r.events) && r.events[r.pos].Type != Input {
		if r.events[r.pos].Type == Output {
			r.pending = append(r.pending, r.events[r.pos].Data...)
		}
		r.pos++
	}
	r.cond.Broadcast()
}
