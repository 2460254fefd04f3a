package terminal

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/zterm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zterm/tests/helpers/testutil"
)

func fastOptions() Options {
	return Options{
		PollInterval:   5 * time.Millisecond,
		StartupTimeout: time.Second,
		CommandTimeout: time.Second,
	}
}

type memRecorder struct {
	mu     sync.Mutex
	input  []string
	output strings.Builder
}

func (r *memRecorder) RecordInput(data string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.input = append(r.input, data)
	return nil
}

func (r *memRecorder) RecordOutput(data string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.output.WriteString(data)
	return nil
}

func TestAttachCapturesPrompt(t *testing.T) {
	tests := []struct {
		name   string
		banner string
		prompt string
	}{
		{"bare prompt", "", "$ "},
		{"banner before prompt", "Welcome to zterm\r\nLast login: today\r\n", "user@host:~$ "},
		{"colored prompt", "motd\n", "\x1b[01;32muser\x1b[00m$ "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shell := testutil.NewFakeShell(t,
				testutil.WithBanner(tt.banner),
				testutil.WithPrompt(tt.prompt))

			s, err := Attach(context.Background(), shell, fastOptions())
			require.NoError(t, err)
			defer s.Close()

			assert.Equal(t, tt.prompt, s.Prompt())
			assert.True(t, strings.HasPrefix(s.ID.String(), "sess_"))
		})
	}
}

func TestAttachFailsWithoutPrompt(t *testing.T) {
	t.Run("output ends with newline", func(t *testing.T) {
		shell := testutil.NewFakeShell(t, testutil.WithPrompt("ready\n"))

		_, err := Attach(context.Background(), shell, fastOptions())
		assert.ErrorIs(t, err, ErrNoPrompt)
	})

	t.Run("no output at all", func(t *testing.T) {
		shell := testutil.NewFakeShell(t, testutil.WithPrompt(""))

		opts := fastOptions()
		opts.StartupTimeout = 20 * time.Millisecond
		_, err := Attach(context.Background(), shell, opts)
		assert.ErrorIs(t, err, ErrNoPrompt)
	})
}

func TestSendLineAndReadUntilPrompt(t *testing.T) {
	shell := testutil.NewFakeShell(t, testutil.WithResponder(testutil.Outputs(map[string]string{
		"echo hi": "hi\n",
	})))
	rec := &memRecorder{}

	opts := fastOptions()
	opts.Recorder = rec
	s, err := Attach(context.Background(), shell, opts)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SendLine("echo hi"))
	out, err := s.ReadUntilPrompt(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "echo hi\r\nhi\r\n"+testutil.DefaultPrompt, out)
	assert.Equal(t, []string{"echo hi"}, shell.Inputs())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"echo hi\n"}, rec.input)
	assert.Contains(t, rec.output.String(), "hi\r\n")
}

func TestReadUntilPromptAcrossChunks(t *testing.T) {
	long := strings.Repeat("x", 2500) + "\n"
	shell := testutil.NewFakeShell(t, testutil.WithResponder(testutil.Outputs(map[string]string{
		"cat big": long,
	})))

	s, err := Attach(context.Background(), shell, fastOptions())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SendLine("cat big"))
	out, err := s.ReadUntilPrompt(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, testutil.DefaultPrompt))
	assert.Contains(t, out, strings.Repeat("x", 2500))
}

func TestReadUntilPromptTimeout(t *testing.T) {
	shell := testutil.NewFakeShell(t, testutil.WithResponder(func(cmd string) (string, bool) {
		return "still running\n", false
	}))
	metrics := monitoring.NewMetrics()

	opts := fastOptions()
	opts.CommandTimeout = 50 * time.Millisecond
	opts.Metrics = metrics
	s, err := Attach(context.Background(), shell, opts)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SendLine("sleep 100"))
	out, err := s.ReadUntilPrompt(context.Background())
	require.Error(t, err)
	assert.Contains(t, out, "still running")

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, testutil.DefaultPrompt, te.Prompt)
	assert.Contains(t, te.Transcript, "still running")

	// The shell may still be busy, so the session refuses further work.
	assert.ErrorIs(t, s.SendLine("ls"), ErrSessionUnusable)
	_, err = s.ReadUntilPrompt(context.Background())
	assert.ErrorIs(t, err, ErrSessionUnusable)
	assert.False(t, s.Info().Active)
}

func TestReadUntilPromptContextCancel(t *testing.T) {
	shell := testutil.NewFakeShell(t, testutil.WithResponder(func(string) (string, bool) {
		return "", false
	}))

	s, err := Attach(context.Background(), shell, fastOptions())
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.SendLine("read x"))
	_, err = s.ReadUntilPrompt(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.SendLine("ls"), ErrSessionUnusable)
}

func TestReadUntilPromptShellExited(t *testing.T) {
	shell := testutil.NewFakeShell(t, testutil.WithResponder(func(string) (string, bool) {
		return "logout\n", false
	}))

	s, err := Attach(context.Background(), shell, fastOptions())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SendLine("exit"))
	shell.Close()

	_, err = s.ReadUntilPrompt(context.Background())
	assert.ErrorIs(t, err, ErrShellExited)
}

func TestReadAvailable(t *testing.T) {
	shell := testutil.NewFakeShell(t)

	s, err := Attach(context.Background(), shell, fastOptions())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ReadAvailable(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrNoOutput)

	shell.Emit("async notice\r\n")
	out, err := s.ReadAvailable(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "async notice\r\n", out)
}

func TestReadAvailableChunkSize(t *testing.T) {
	shell := testutil.NewFakeShell(t)

	opts := fastOptions()
	opts.ReadChunkSize = 4
	s, err := Attach(context.Background(), shell, opts)
	require.NoError(t, err)
	defer s.Close()

	shell.Emit("abcdefgh")
	require.Eventually(t, func() bool { return s.output.Len() == 8 }, time.Second, time.Millisecond)

	first, err := s.ReadAvailable(time.Second)
	require.NoError(t, err)
	second, err := s.ReadAvailable(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "abcd", first)
	assert.Equal(t, "efgh", second)
}

func TestCloseIsIdempotent(t *testing.T) {
	shell := testutil.NewFakeShell(t)
	metrics := monitoring.NewMetrics()

	opts := fastOptions()
	opts.Metrics = metrics
	s, err := Attach(context.Background(), shell, opts)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.SendLine("ls"), ErrSessionClosed)
	assert.False(t, s.Info().Active)
}

func TestResolveShell(t *testing.T) {
	_, err := resolveShell("/definitely/not/a/shell")
	assert.ErrorIs(t, err, ErrShellNotFound)

	shell, err := resolveShell("")
	if err != nil {
		t.Skip("no POSIX shell available")
	}
	assert.Contains(t, []string{defaultShell, fallbackShell}, shell)
}

func TestStartRealShell(t *testing.T) {
	if _, err := exec.LookPath("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	opts := fastOptions()
	opts.Shell = "/bin/sh"
	opts.PS1 = "zterm$ "
	opts.PollInterval = 50 * time.Millisecond
	opts.CommandTimeout = 5 * time.Second
	opts.Env = []string{"ENV=/dev/null"}

	s, err := Start(context.Background(), opts)
	if err != nil {
		t.Skipf("PTY unavailable: %v", err)
	}
	defer s.Close()

	assert.Equal(t, "zterm$ ", s.Prompt())
	assert.Greater(t, s.PID(), 0)

	require.NoError(t, s.SendLine("echo hello"))
	out, err := s.ReadUntilPrompt(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out, "hello\r\n")
	assert.True(t, strings.HasSuffix(out, "zterm$ "))

	require.NoError(t, s.Resize(120, 40))
	assert.Equal(t, 120, s.Info().Cols)
}

func TestShellCommand(t *testing.T) {
	tests := []struct {
		name     string
		shell    string
		opts     Options
		wantArgs []string
		wantEnv  []string
	}{
		{
			name:     "bash skips rc files",
			shell:    "/bin/bash",
			opts:     Options{Term: "xterm", PS1: "zterm$ "},
			wantArgs: []string{"--norc", "--noprofile"},
			wantEnv:  []string{"TERM=xterm", "PS1=zterm$ ", "PROMPT_COMMAND=", "PS0=", "ENV="},
		},
		{
			name:     "zsh skips rc files",
			shell:    "/usr/bin/zsh",
			opts:     Options{Term: "xterm"},
			wantArgs: []string{"--no-rcs"},
			wantEnv:  []string{"TERM=xterm", "ENV="},
		},
		{
			name:     "sh ignores ENV",
			shell:    "/bin/sh",
			opts:     Options{Term: "xterm", Args: []string{"-i"}, Env: []string{"LANG=C"}},
			wantArgs: []string{"-i"},
			wantEnv:  []string{"TERM=xterm", "ENV=", "LANG=C"},
		},
		{
			name:     "rc files enabled",
			shell:    "/bin/bash",
			opts:     Options{Term: "xterm", PS1: "$ ", RCFiles: true},
			wantArgs: nil,
			wantEnv:  []string{"TERM=xterm", "PS1=$ "},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, env := shellCommand(tt.shell, tt.opts)
			assert.Equal(t, tt.wantArgs, args)
			assert.Equal(t, tt.wantEnv, env)
		})
	}
}

func TestStartBashKeepsPromptAcrossCd(t *testing.T) {
	bash, err := exec.LookPath("bash")
	if err != nil {
		t.Skip("bash not available")
	}

	home := t.TempDir()
	rc := "PS1='\\u@\\h:\\w\\$ '\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, ".bashrc"), []byte(rc), 0o644))
	t.Setenv("HOME", home)

	opts := fastOptions()
	opts.Shell = bash
	opts.PS1 = "zterm$ "
	opts.PollInterval = 50 * time.Millisecond
	opts.StartupTimeout = 5 * time.Second
	opts.CommandTimeout = 5 * time.Second
	opts.WorkDir = home

	s, err := Start(context.Background(), opts)
	if err != nil {
		t.Skipf("PTY unavailable: %v", err)
	}
	defer s.Close()

	assert.True(t, strings.HasSuffix(s.Prompt(), "zterm$ "))

	require.NoError(t, s.SendLine("cd /"))
	_, err = s.ReadUntilPrompt(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.SendLine("echo done"))
	out, err := s.ReadUntilPrompt(context.Background())
	require.NoError(t, err)
	assert.Contains(t, out, "done\r\n")
}
