package cast

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCast() *Cast {
	return &Cast{
		Header: Header{Version: Version, Width: 80, Height: 24},
		Events: []Event{
			{Time: 0.1, Type: Output, Data: "motd\r\n"},
			{Time: 0.2, Type: Output, Data: "$ "},
			{Time: 1.0, Type: Input, Data: "echo hi\n"},
			{Time: 1.1, Type: Output, Data: "echo hi\r\n"},
			{Time: 1.2, Type: Output, Data: "hi\r\n$ "},
		},
	}
}

func readAll(t *testing.T, r *Replayer, n int) string {
	t.Helper()
	buf := make([]byte, n)
	got, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	return string(buf[:got])
}

func TestReplayer(t *testing.T) {
	r := NewReplayer(testCast())

	assert.Equal(t, "motd\r\n$ ", readAll(t, r, len("motd\r\n$ ")))

	n, err := r.Write([]byte("echo hi\n"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	assert.Equal(t, "echo hi\r\nhi\r\n$ ", readAll(t, r, len("echo hi\r\nhi\r\n$ ")))

	_, err = r.Read(make([]byte, 10))
	assert.ErrorIs(t, err, io.EOF)

	_, err = r.Write([]byte("ls\n"))
	assert.ErrorIs(t, err, ErrReplayExhausted)
}

func TestReplayerBlocksUntilInput(t *testing.T) {
	r := NewReplayer(testCast())
	readAll(t, r, len("motd\r\n$ "))

	done := make(chan string)
	go func() {
		buf := make([]byte, 64)
		n, _ := r.Read(buf)
		done <- string(buf[:n])
	}()

	select {
	case <-done:
		t.Fatal("read returned before input was written")
	case <-time.After(20 * time.Millisecond):
	}

	_, err := r.Write([]byte("echo hi\n"))
	require.NoError(t, err)

	select {
	case out := <-done:
		assert.Equal(t, "echo hi\r\nhi\r\n$ ", out)
	case <-time.After(time.Second):
		t.Fatal("read did not return after input")
	}
}

func TestReplayerSplitInput(t *testing.T) {
	c := &Cast{Events: []Event{
		{Type: Output, Data: "$ "},
		{Type: Input, Data: "l"},
		{Type: Input, Data: "s\n"},
		{Type: Output, Data: "ls\r\n$ "},
	}}
	r := NewReplayer(c)
	readAll(t, r, 2)

	_, err := r.Write([]byte("ls\n"))
	require.NoError(t, err)
	assert.Equal(t, "ls\r\n$ ", readAll(t, r, 6))
}

func TestReplayerDivergence(t *testing.T) {
	r := NewReplayer(testCast())

	_, err := r.Write([]byte("rm -rf /\n"))
	var de *DivergenceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "echo hi\n", de.Want)
	assert.Equal(t, "rm -rf /\n", de.Got)
}

func TestReplayerClose(t *testing.T) {
	r := NewReplayer(testCast())
	readAll(t, r, len("motd\r\n$ "))

	require.NoError(t, r.Close())
	_, err := r.Read(make([]byte, 4))
	assert.ErrorIs(t, err, io.EOF)

	_, err = r.Write([]byte("echo hi\n"))
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}
