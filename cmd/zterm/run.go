package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/zterm/internal/executor"
)

func newRunCmd(f *flags, s *streams) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run commands read from stdin, one per line",
		Long: `Start a shell and run each line read from stdin as a command, printing
its cleaned output. Blank lines are skipped. The loop ends at end of input
or when the shell can no longer be trusted (a timeout or a lost echo).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExecutor(cmd, f, s, func(ctx context.Context, a *app, e *executor.Executor) error {
				for {
					line, err := s.in.ReadString('\n')
					if line = strings.TrimSpace(line); line != "" {
						if runErr := runOne(ctx, a, e, line); runErr != nil {
							return runErr
						}
					}
					if errors.Is(err, io.EOF) {
						return nil
					}
					if err != nil {
						return err
					}
				}
			})
		},
	}
}

func newExecCmd(f *flags, s *streams) *cobra.Command {
	return &cobra.Command{
		Use:   "exec COMMAND...",
		Short: "Run each argument as a command in one shell",
		Example: `  zterm exec "cd /tmp" "ls -la"
  zterm exec --yes --record build.cast.zst "make" "make test"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withExecutor(cmd, f, s, func(ctx context.Context, a *app, e *executor.Executor) error {
				for _, command := range args {
					if err := runOne(ctx, a, e, command); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

// runOne executes command and prints its output. Only fatal errors are
// returned; others are reported and the caller moves on.
func runOne(ctx context.Context, a *app, e *executor.Executor, command string) error {
	out, err := e.Execute(ctx, command)
	if err != nil {
		if a.reportError(err) {
			return nil
		}
		return err
	}
	a.printOutput(out)
	return nil
}

// withExecutor sets up configuration, logging, metrics, the shell and the
// executor, runs fn and tears everything down.
func withExecutor(cmd *cobra.Command, f *flags, s *streams, fn func(context.Context, *app, *executor.Executor) error) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, f, s)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.startSession(ctx)
	if err != nil {
		return err
	}

	e, err := a.executor(session)
	if err != nil {
		return err
	}
	return fn(ctx, a, e)
}
