package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/zterm/internal/ansi"
	"github.com/GriffinCanCode/zterm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zterm/internal/logging"
	"github.com/GriffinCanCode/zterm/internal/review"
	"github.com/GriffinCanCode/zterm/internal/shared/id"
	"github.com/GriffinCanCode/zterm/internal/terminal"
	"github.com/GriffinCanCode/zterm/internal/workdir"
)

// Shell is the part of a terminal session the executor drives.
type Shell interface {
	SendLine(text string) error
	ReadUntilPrompt(ctx context.Context) (string, error)
	Prompt() string
	PID() int
}

// CommandResult is one completed command.
type CommandResult struct {
	ID       id.CommandID  `json:"id"`
	Command  string        `json:"command"`
	Output   string        `json:"output"`
	Outcome  string        `json:"outcome"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// Option configures an Executor.
type Option func(*Executor)

// WithGate reviews every command before it runs.
func WithGate(g review.Gate) Option {
	return func(e *Executor) { e.gate = g }
}

// WithTracker keeps the process directory in step with the shell.
func WithTracker(t *workdir.Tracker) Option {
	return func(e *Executor) { e.tracker = t }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// WithMetrics records command metrics.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// Executor runs commands in a shell one at a time.
type Executor struct {
	mu      sync.Mutex
	shell   Shell
	gate    review.Gate
	tracker *workdir.Tracker
	logger  *logging.Logger
	metrics *monitoring.Metrics
	history []CommandResult
}

// New creates an executor for shell.
func New(shell Shell, opts ...Option) *Executor {
	e := &Executor{shell: shell}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.OrNop(e.logger).Component("executor")
	return e
}

// Execute runs command and returns its output with the echo, the prompt
// and terminal control sequences removed. A single trailing newline is
// dropped.
func (e *Executor) Execute(ctx context.Context, command string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	output, run, err := e.execute(ctx, command)

	outcome := outcomeOf(err)
	duration := time.Since(started)
	e.metrics.RecordCommand(outcome, duration, len(output))

	fields := []zap.Field{
		zap.String("command", run),
		zap.String("outcome", outcome),
		zap.Duration("duration", duration),
		zap.Int("bytes", len(output)),
	}
	switch {
	case err == nil:
		e.logger.Info("Command executed", fields...)
	case errors.Is(err, ErrReviewAborted):
		e.logger.Info("Command not executed", append(fields, zap.Error(err))...)
	default:
		e.logger.Error("Command failed", append(fields, zap.Error(err))...)
	}

	if run != "" {
		e.history = append(e.history, CommandResult{
			ID:       id.NewCommandID(),
			Command:  run,
			Output:   output,
			Outcome:  outcome,
			Started:  started,
			Duration: duration,
		})
	}
	return output, err
}

// execute returns the output and the command that was actually sent, which
// is empty when nothing reached the shell.
func (e *Executor) execute(ctx context.Context, command string) (string, string, error) {
	if strings.ContainsAny(command, "\r\n") {
		return "", "", ErrMultilineCommand
	}

	command, err := e.review(ctx, command)
	if err != nil {
		return "", "", err
	}

	if err := e.shell.SendLine(command); err != nil {
		return "", "", err
	}

	raw, err := e.shell.ReadUntilPrompt(ctx)
	if err != nil {
		if !IsFatal(err) {
			err = fmt.Errorf("%w: %w", terminal.ErrSessionUnusable, err)
		}
		return "", command, err
	}

	if e.tracker != nil {
		if _, err := e.tracker.Observe(command, e.shell.PID()); err != nil {
			e.logger.Warn("Could not follow shell directory", zap.Error(err))
		}
	}

	output, err := extractOutput(command, raw, e.shell.Prompt())
	return output, command, err
}

// review passes command through the gate and returns what should run.
func (e *Executor) review(ctx context.Context, command string) (string, error) {
	if e.gate == nil {
		return command, nil
	}

	d, err := e.gate.Review(ctx, command)
	if err != nil {
		return "", fmt.Errorf("review command: %w", err)
	}
	e.metrics.RecordReview(string(d.Action))

	switch d.Action {
	case review.Abort:
		return "", &ReviewAbortedError{Command: command, Reason: d.Reason}
	case review.Replace:
		if d.Command == "" {
			return "", &ReviewAbortedError{Command: command, Reason: "empty replacement"}
		}
		if strings.ContainsAny(d.Command, "\r\n") {
			return "", ErrMultilineCommand
		}
		e.logger.Debug("Command replaced by review",
			zap.String("command", command),
			zap.String("replacement", d.Command))
		return d.Command, nil
	}
	return command, nil
}

// extractOutput frames a raw transcript: the echoed command and newline at
// the start, the prompt at the end, and the command's output in between.
func extractOutput(command, raw, prompt string) (string, error) {
	transcript := strings.ReplaceAll(raw, "\r\n", "\n")
	echo := command + "\n"
	if !strings.HasPrefix(transcript, echo) {
		return "", &EchoMismatchError{Command: command, Transcript: raw}
	}

	body := strings.TrimPrefix(transcript, echo)
	body = strings.TrimSuffix(body, strings.ReplaceAll(prompt, "\r\n", "\n"))
	return strings.TrimSuffix(ansi.Clean(body), "\n"), nil
}

// History returns the commands that reached the shell, oldest first.
func (e *Executor) History() []CommandResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]CommandResult(nil), e.history...)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return monitoring.OutcomeOK
	case errors.Is(err, terminal.ErrTimeout):
		return monitoring.OutcomeTimeout
	case errors.Is(err, ErrEchoMismatch):
		return monitoring.OutcomeEchoMismatch
	case errors.Is(err, ErrReviewAborted):
		return monitoring.OutcomeReviewAborted
	default:
		return monitoring.OutcomeError
	}
}
