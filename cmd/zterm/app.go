package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/zterm/internal/cast"
	"github.com/GriffinCanCode/zterm/internal/executor"
	"github.com/GriffinCanCode/zterm/internal/infrastructure/config"
	"github.com/GriffinCanCode/zterm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zterm/internal/infrastructure/server"
	"github.com/GriffinCanCode/zterm/internal/logging"
	"github.com/GriffinCanCode/zterm/internal/review"
	"github.com/GriffinCanCode/zterm/internal/terminal"
	"github.com/GriffinCanCode/zterm/internal/workdir"
)

// app owns everything one invocation creates and closes it in reverse.
type app struct {
	cfg      *config.Config
	flags    *flags
	streams  *streams
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	server   *server.Server
	recorder *cast.Recorder
	session  *terminal.Session
}

func newApp(cfg *config.Config, f *flags, s *streams) (*app, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Output:      s.err,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{
		cfg:     cfg,
		flags:   f,
		streams: s,
		logger:  logger,
		metrics: monitoring.NewMetrics(),
	}

	if cfg.Metrics.Addr != "" {
		a.server = server.New(cfg.Metrics.Addr, a.metrics, logger)
		if err := a.server.Start(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// sessionOptions maps configuration onto terminal options.
func (a *app) sessionOptions() terminal.Options {
	t := a.cfg.Terminal
	return terminal.Options{
		Shell:          t.Shell,
		PS1:            t.PS1,
		RCFiles:        t.RCFiles,
		Term:           t.Term,
		WorkDir:        t.WorkDir,
		Cols:           t.Cols,
		Rows:           t.Rows,
		PollInterval:   t.PollInterval,
		ReadChunkSize:  t.ReadChunkSize,
		StartupTimeout: t.StartupTimeout,
		CommandTimeout: t.CommandTimeout,
		Logger:         a.logger,
		Metrics:        a.metrics,
	}
}

// startSession spawns the shell, recording it when a path is configured.
func (a *app) startSession(ctx context.Context) (*terminal.Session, error) {
	opts := a.sessionOptions()

	if path := a.cfg.Recording.Path; path != "" {
		rec, err := cast.Create(path, cast.Header{
			Width:   opts.Cols,
			Height:  opts.Rows,
			Command: opts.Shell,
			Env:     map[string]string{"TERM": opts.Term, "SHELL": opts.Shell},
		})
		if err != nil {
			return nil, fmt.Errorf("create recording: %w", err)
		}
		a.recorder = rec
		opts.Recorder = rec
		a.logger.Info("Recording session", zap.String("path", path))
	}

	s, err := terminal.Start(ctx, opts)
	if err != nil {
		return nil, err
	}
	a.session = s
	return s, nil
}

// gate builds the review gate from flags and configuration. It returns nil
// when commands run unreviewed. A policy file asks the operator about
// commands it does not cover only in safe mode.
func (a *app) gate() (review.Gate, error) {
	interactive := a.cfg.Review.SafeMode && !a.flags.yes

	var fallback review.Gate = review.Always{Action: review.Proceed}
	if interactive {
		fallback = review.NewHuman(a.streams.in, a.streams.err, a.logger)
	}

	if a.cfg.Review.PolicyFile != "" {
		p, err := review.LoadPolicy(a.cfg.Review.PolicyFile, fallback, a.logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	if !interactive {
		return nil, nil
	}
	return fallback, nil
}

// executor wires the session to the gate and directory tracker.
func (a *app) executor(s executor.Shell) (*executor.Executor, error) {
	opts := []executor.Option{
		executor.WithLogger(a.logger),
		executor.WithMetrics(a.metrics),
	}

	gate, err := a.gate()
	if err != nil {
		return nil, err
	}
	if gate != nil {
		opts = append(opts, executor.WithGate(gate))
	}

	tracker, err := workdir.New(workdir.Options{
		Mirror:  a.cfg.Terminal.MirrorCwd,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
	if err != nil {
		return nil, err
	}
	opts = append(opts, executor.WithTracker(tracker))

	return executor.New(s, opts...), nil
}

func (a *app) Close() error {
	var errs []error
	if a.session != nil {
		errs = append(errs, a.session.Close())
	}
	if a.recorder != nil {
		errs = append(errs, a.recorder.Close())
	}
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, a.server.Shutdown(ctx))
	}

	snap := a.metrics.Snapshot()
	a.logger.Debug("Finished",
		zap.Int64("commands", snap.Commands),
		zap.Int64("failures", snap.Failures),
		zap.Duration("total_duration", snap.TotalDuration))
	a.logger.Sync()
	return errors.Join(errs...)
}

// printOutput writes command output followed by a newline when non-empty.
func (a *app) printOutput(out string) {
	if out == "" {
		return
	}
	fmt.Fprintln(a.streams.out, out)
}

// reportError prints a non-fatal command error and reports whether the
// session can continue.
func (a *app) reportError(err error) bool {
	fmt.Fprintf(a.streams.err, "zterm: %v\n", err)
	return !executor.IsFatal(err)
}
