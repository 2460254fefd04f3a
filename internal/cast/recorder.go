package cast

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Recorder writes events to a cast as they happen. It is safe for
// concurrent use; the session's reader goroutine and its caller both write
// to it.
type Recorder struct {
	mu      sync.Mutex
	w       *bufio.Writer
	closers []io.Closer
	start   time.Time
	now     func() time.Time
	closed  bool
}

// NewRecorder writes the header to w and returns a recorder appending
// events after it. The header's version is always set, and its timestamp
// is filled in when zero.
func NewRecorder(w io.Writer, h Header) (*Recorder, error) {
	return newRecorder(w, h, time.Now)
}

func newRecorder(w io.Writer, h Header, now func() time.Time) (*Recorder, error) {
	start := now()
	h.Version = Version
	if h.Timestamp == 0 {
		h.Timestamp = start.Unix()
	}

	data, err := sonic.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode cast header: %w", err)
	}

	r := &Recorder{
		w:     bufio.NewWriter(w),
		start: start,
		now:   now,
	}
	if err := r.writeLine(data); err != nil {
		return nil, err
	}
	return r, nil
}

// Create records to a new file. Paths ending in .gz or .zst are
// compressed.
func Create(path string, h Header) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	var (
		w       io.Writer = f
		closers []io.Closer
	)
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz := gzip.NewWriter(f)
		w, closers = gz, append(closers, gz)
	case strings.HasSuffix(path, ".zst"):
		zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd: %w", err)
		}
		w, closers = zw, append(closers, zw)
	}

	r, err := NewRecorder(w, h)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		f.Close()
		return nil, err
	}
	r.closers = append(closers, f)
	return r, nil
}

// RecordInput appends an input event.
func (r *Recorder) RecordInput(data string) error {
	return r.record(Input, data)
}

// RecordOutput appends an output event.
func (r *Recorder) RecordOutput(data string) error {
	return r.record(Output, data)
}

func (r *Recorder) record(typ EventType, data string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return os.ErrClosed
	}

	elapsed := r.now().Sub(r.start).Seconds()
	ev := Event{
		Time: math.Round(elapsed*1e6) / 1e6,
		Type: typ,
		Data: data,
	}
	line, err := ev.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode cast event: %w", err)
	}
	return r.writeLine(line)
}

// writeLine writes one line and flushes it so partial recordings survive
// a crash.
func (r *Recorder) writeLine(line []byte) error {
	if _, err := r.w.Write(line); err != nil {
		return err
	}
	if err := r.w.WriteByte('\n'); err != nil {
		return err
	}
	return r.w.Flush()
}

// Close flushes the recording and closes any file and compressor opened
// by Create.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	err := r.w.Flush()
	for _, c := range r.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
