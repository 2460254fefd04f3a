package cast

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Version is the asciicast format version written and accepted.
const Version = 2

// maxLineSize bounds one event line when decoding.
const maxLineSize = 16 * 1024 * 1024

var (
	// ErrInvalidCast is returned for malformed cast data.
	ErrInvalidCast = errors.New("invalid cast")

	// ErrUnsupportedVersion is returned for casts that are not version 2.
	ErrUnsupportedVersion = errors.New("unsupported cast version")
)

// Header is the first line of a cast.
type Header struct {
	Version   int               `json:"version"`
	Width     int               `json:"width"`
	Height    int               `json:"height"`
	Timestamp int64             `json:"timestamp,omitempty"`
	Command   string            `json:"command,omitempty"`
	Title     string            `json:"title,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

// EventType distinguishes keyboard input from terminal output.
type EventType string

const (
	Input  EventType = "i"
	Output EventType = "o"
)

// Event is one chunk of input or output, Time seconds after the start.
type Event struct {
	Time float64
	Type EventType
	Data string
}

// MarshalJSON encodes the event as [time, type, data].
func (e Event) MarshalJSON() ([]byte, error) {
	return sonic.Marshal([]interface{}{e.Time, string(e.Type), e.Data})
}

// UnmarshalJSON decodes an event from [time, type, data].
func (e *Event) UnmarshalJSON(data []byte) error {
	var raw []interface{}
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("%w: event has %d fields", ErrInvalidCast, len(raw))
	}

	t, ok1 := raw[0].(float64)
	typ, ok2 := raw[1].(string)
	payload, ok3 := raw[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return fmt.Errorf("%w: event fields have wrong types", ErrInvalidCast)
	}

	*e = Event{Time: t, Type: EventType(typ), Data: payload}
	return nil
}

// Cast is a decoded recording.
type Cast struct {
	Header Header
	Events []Event
}

// Commands returns the recorded input split into lines, without the
// trailing newline. Input that never ended in a newline is dropped.
func (c *Cast) Commands() []string {
	var input strings.Builder
	for _, ev := range c.Events {
		if ev.Type == Input {
			input.WriteString(ev.Data)
		}
	}

	lines := strings.Split(input.String(), "\n")
	return lines[:len(lines)-1]
}

// Output returns all recorded output concatenated.
func (c *Cast) Output() string {
	var out strings.Builder
	for _, ev := range c.Events {
		if ev.Type == Output {
			out.WriteString(ev.Data)
		}
	}
	return out.String()
}

// Duration returns the time of the last event in seconds.
func (c *Cast) Duration() float64 {
	if len(c.Events) == 0 {
		return 0
	}
	return c.Events[len(c.Events)-1].Time
}

// Decode reads a cast from r.
func Decode(r io.Reader) (*Cast, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read cast header: %w", err)
		}
		return nil, fmt.Errorf("%w: empty input", ErrInvalidCast)
	}

	var c Cast
	if err := sonic.Unmarshal(scanner.Bytes(), &c.Header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalidCast, err)
	}
	if c.Header.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, c.Header.Version)
	}

	line := 1
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		var ev Event
		if err := ev.UnmarshalJSON(data); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		c.Events = append(c.Events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cast events: %w", err)
	}
	return &c, nil
}

// Open reads a cast file, decompressing .gz and .zst files.
func Open(path string) (*Cast, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	c, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
