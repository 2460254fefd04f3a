package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/zterm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zterm/internal/logging"
	"github.com/GriffinCanCode/zterm/internal/shared/id"
)

// Session represents a running shell attached to a PTY
type Session struct {
	ID        id.SessionID
	Shell     string
	StartedAt time.Time

	opts     Options
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	recorder Recorder

	// Process management
	cmd  *exec.Cmd
	conn io.ReadWriteCloser

	prompt string
	output *Buffer

	// Lifecycle
	mu       sync.RWMutex
	closed   bool
	unusable error
}

// Start spawns the shell on a new PTY and captures its idle prompt.
func Start(ctx context.Context, opts Options) (*Session, error) {
	shell, err := resolveShell(opts.Shell)
	if err != nil {
		return nil, err
	}
	opts.Shell = shell
	opts = opts.withDefaults()

	args, env := shellCommand(shell, opts)
	cmd := exec.Command(shell, args...)
	cmd.Dir = opts.WorkDir
	cmd.Env = append(os.Environ(), env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(opts.Rows),
		Cols: uint16(opts.Cols),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	s := newSession(ptmx, opts)
	s.cmd = cmd
	go s.monitorProcess()

	if err := s.init(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Attach runs a session over an existing PTY-like connection, such as a
// recorded transcript replayer. The connection is closed by Close.
func Attach(ctx context.Context, conn io.ReadWriteCloser, opts Options) (*Session, error) {
	if opts.Shell == "" {
		opts.Shell = "attached"
	}
	s := newSession(conn, opts.withDefaults())
	if err := s.init(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newSession(conn io.ReadWriteCloser, opts Options) *Session {
	s := &Session{
		ID:        id.NewSessionID(),
		Shell:     opts.Shell,
		StartedAt: time.Now(),
		opts:      opts,
		metrics:   opts.Metrics,
		recorder:  opts.Recorder,
		conn:      conn,
		output:    NewBuffer(opts.BufferLimit),
	}
	s.logger = opts.Logger.Component("terminal").With(zap.String("session", s.ID.String()))
	return s
}

// init starts the output reader and captures the idle prompt.
func (s *Session) init(ctx context.Context) error {
	go s.readOutput()

	prompt, err := s.capturePrompt(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.prompt = prompt
	s.mu.Unlock()
	s.metrics.SessionStarted()

	s.logger.Info("Shell session started",
		zap.String("shell", s.Shell),
		zap.Int("pid", s.PID()),
		zap.String("prompt", prompt))
	return nil
}

// capturePrompt waits briefly and reads whatever the idle shell printed.
// Only the text after the last newline counts as the prompt.
func (s *Session) capturePrompt(ctx context.Context) (string, error) {
	if err := sleepCtx(ctx, s.opts.PollInterval); err != nil {
		return "", err
	}

	initial, err := s.ReadAvailable(s.opts.StartupTimeout)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoPrompt, err)
	}
	for {
		more, err := s.ReadAvailable(s.opts.PollInterval)
		if err != nil {
			break
		}
		initial += more
	}

	prompt := initial[strings.LastIndex(initial, "\n")+1:]
	if prompt == "" {
		return "", fmt.Errorf("%w: initial output %q ends with a newline", ErrNoPrompt, initial)
	}
	return prompt, nil
}

// readOutput continuously reads from the PTY and buffers output
func (s *Session) readOutput() {
	buf := make([]byte, 4096)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			// Record before buffering so a recording is complete once
			// the caller has seen the output.
			if s.recorder != nil {
				if rerr := s.recorder.RecordOutput(string(buf[:n])); rerr != nil {
					s.logger.Warn("Failed to record output", zap.Error(rerr))
				}
			}
			s.output.Write(buf[:n])
		}
		if err != nil {
			if err == io.EOF {
				err = ErrShellExited
			} else {
				err = fmt.Errorf("%w: %v", ErrShellExited, err)
			}
			s.output.CloseWithError(err)
			return
		}
	}
}

// monitorProcess waits for the shell to exit and closes the PTY
func (s *Session) monitorProcess() {
	err := s.cmd.Wait()
	s.logger.Debug("Shell process exited", zap.Error(err))

	s.mu.Lock()
	wasClosed := s.closed
	started := s.prompt != ""
	s.closed = true
	s.mu.Unlock()

	s.conn.Close()
	if !wasClosed && started {
		s.metrics.SessionClosed()
	}
}

// Prompt returns the idle prompt captured at startup
func (s *Session) Prompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}

// PID returns the shell's process id, or 0 for attached sessions
func (s *Session) PID() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// SendLine writes text followed by a newline to the shell
func (s *Session) SendLine(text string) error {
	if err := s.usable(); err != nil {
		return err
	}

	line := text + "\n"
	if s.recorder != nil {
		if err := s.recorder.RecordInput(line); err != nil {
			s.logger.Warn("Failed to record input", zap.Error(err))
		}
	}
	if _, err := io.WriteString(s.conn, line); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	s.logger.Debug("Sent line", zap.String("text", text))
	return nil
}

// ReadAvailable returns up to ReadChunkSize bytes of buffered output. It
// waits at most timeout for data and returns ErrNoOutput if none arrived.
func (s *Session) ReadAvailable(timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		chunk, err := s.output.Next(s.opts.ReadChunkSize)
		if len(chunk) > 0 {
			return string(chunk), nil
		}
		if err != nil {
			return "", err
		}

		select {
		case <-s.output.Wait():
		case <-timer.C:
			return "", ErrNoOutput
		}
	}
}

// ReadUntilPrompt accumulates output until it ends with the idle prompt.
// Any failure makes the session unusable, since the shell may still be
// running the command.
func (s *Session) ReadUntilPrompt(ctx context.Context) (string, error) {
	if err := s.usable(); err != nil {
		return "", err
	}

	prompt := s.Prompt()
	start := time.Now()
	deadline := start.Add(s.opts.CommandTimeout)

	var transcript strings.Builder
	for !strings.HasSuffix(transcript.String(), prompt) {
		if err := ctx.Err(); err != nil {
			return transcript.String(), s.fail(err)
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return transcript.String(), s.fail(&TimeoutError{
				Prompt:     prompt,
				Transcript: transcript.String(),
				Elapsed:    time.Since(start),
			})
		}

		chunk, err := s.ReadAvailable(min(remaining, s.opts.PollInterval))
		if errors.Is(err, ErrNoOutput) {
			continue
		}
		if err != nil {
			return transcript.String(), s.fail(err)
		}
		transcript.WriteString(chunk)

		if strings.HasSuffix(transcript.String(), prompt) || s.output.Len() > 0 {
			continue
		}
		if err := sleepCtx(ctx, s.opts.PollInterval); err != nil {
			return transcript.String(), s.fail(err)
		}
	}

	s.logger.Debug("Prompt returned",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", transcript.Len()))
	return transcript.String(), nil
}

// Resize changes the PTY dimensions of a spawned shell
func (s *Session) Resize(cols, rows int) error {
	if err := s.usable(); err != nil {
		return err
	}
	f, ok := s.conn.(*os.File)
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.opts.Cols = cols
	s.opts.Rows = rows
	s.mu.Unlock()

	return pty.Setsize(f, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(cols),
	})
}

// Info returns a snapshot of the session
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Info{
		ID:        s.ID.String(),
		Shell:     s.Shell,
		PID:       s.PID(),
		Prompt:    s.prompt,
		Cols:      s.opts.Cols,
		Rows:      s.opts.Rows,
		StartedAt: s.StartedAt,
		Active:    !s.closed && s.unusable == nil,
	}
}

// Close terminates the shell and releases the PTY
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.prompt != ""
	s.mu.Unlock()

	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	err := s.conn.Close()
	if started {
		s.metrics.SessionClosed()
	}

	s.logger.Info("Shell session closed")
	return err
}

func (s *Session) usable() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.unusable != nil {
		return s.unusable
	}
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// fail poisons the session and returns err unchanged.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	if s.unusable == nil {
		s.unusable = fmt.Errorf("%w: %v", ErrSessionUnusable, err)
	}
	s.mu.Unlock()

	s.logger.Error("Command read failed", zap.Error(err))
	return err
}

// shellCommand returns the arguments and extra environment for shell. Unless
// rc files are enabled the shell starts without them, and the prompt hooks
// bash runs around each command are cleared so the prompt stays fixed.
func shellCommand(shell string, opts Options) (args, env []string) {
	env = []string{"TERM=" + opts.Term}
	if opts.PS1 != "" {
		env = append(env, "PS1="+opts.PS1)
	}

	if !opts.RCFiles {
		switch filepath.Base(shell) {
		case "bash":
			args = append(args, "--norc", "--noprofile")
			env = append(env, "PROMPT_COMMAND=", "PS0=")
		case "zsh":
			args = append(args, "--no-rcs")
		}
		env = append(env, "ENV=")
	}

	args = append(args, opts.Args...)
	env = append(env, opts.Env...)
	return args, env
}

// resolveShell picks the shell binary. The default falls back to /bin/sh;
// an explicitly requested shell must exist.
func resolveShell(shell string) (string, error) {
	if shell == "" {
		if _, err := exec.LookPath(defaultShell); err == nil {
			return defaultShell, nil
		}
		shell = fallbackShell
	}
	if _, err := exec.LookPath(shell); err != nil {
		return "", fmt.Errorf("%w: %s", ErrShellNotFound, shell)
	}
	return shell, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
