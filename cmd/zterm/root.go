package main

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/zterm/internal/infrastructure/config"
)

// flags holds values from the command line. Only flags the user set
// override the environment.
type flags struct {
	safe        bool
	yes         bool
	policy      string
	record      string
	metricsAddr string
	shell       string
	timeout     time.Duration
	logLevel    string
	dev         bool
}

// streams are the process's standard streams. in is shared by the command
// loop and the review prompt so neither buffers input the other needs.
type streams struct {
	in  *bufio.Reader
	out io.Writer
	err io.Writer
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	f := &flags{}
	s := &streams{in: bufio.NewReader(stdin), out: stdout, err: stderr}

	root := &cobra.Command{
		Use:   "zterm",
		Short: "Run shell commands through a terminal and print clean output",
		Long: `zterm runs commands in a long-lived interactive shell attached to a
pseudo-terminal. Output is captured up to the shell's prompt, the echoed
command is removed and cursor movement, colors and carriage returns are
rendered into plain text.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.SetIn(s.in)
	root.SetOut(stdout)
	root.SetErr(stderr)

	f.bind(root)

	root.AddCommand(
		newRunCmd(f, s),
		newExecCmd(f, s),
		newCleanCmd(s),
		newReplayCmd(f, s),
	)
	return root
}

// bind registers the flags as persistent flags of cmd.
func (f *flags) bind(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.BoolVar(&f.safe, "safe", true, "review every command before it runs")
	pf.BoolVarP(&f.yes, "yes", "y", false, "approve every command without asking")
	pf.StringVar(&f.policy, "policy", "", "YAML or TOML command policy file")
	pf.StringVar(&f.record, "record", "", "record the session to an asciicast file (.cast, .cast.gz, .cast.zst)")
	pf.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	pf.StringVar(&f.shell, "shell", "", "shell to run (default /bin/bash, falling back to /bin/sh)")
	pf.DurationVar(&f.timeout, "timeout", 30*time.Second, "how long to wait for the prompt after a command")
	pf.StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.BoolVar(&f.dev, "dev", false, "development logging")
}

// loadConfig reads the environment and applies flags the user set.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("safe") {
		cfg.Review.SafeMode = f.safe
	}
	if changed("policy") {
		cfg.Review.PolicyFile = f.policy
	}
	if changed("record") {
		cfg.Recording.Path = f.record
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
	if changed("shell") {
		cfg.Terminal.Shell = f.shell
	}
	if changed("timeout") {
		cfg.Terminal.CommandTimeout = f.timeout
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("dev") {
		cfg.Logging.Development = f.dev
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	return cfg, nil
}
