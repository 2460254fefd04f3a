package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/zterm/internal/cast"
	"github.com/GriffinCanCode/zterm/internal/executor"
	"github.com/GriffinCanCode/zterm/internal/terminal"
)

func newReplayCmd(f *flags, s *streams) *cobra.Command {
	return &cobra.Command{
		Use:   "replay FILE",
		Short: "Replay a recorded session and print each command's cleaned output",
		Long: `Feed a recorded asciicast session back through the executor without
starting a shell. Every recorded command is sent again and must match the
recording; its output is cleaned exactly as during a live run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			c, err := cast.Open(args[0])
			if err != nil {
				return err
			}

			// A replay neither records nor serves metrics.
			cfg.Recording.Path = ""
			cfg.Metrics.Addr = ""
			a, err := newApp(cfg, f, s)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := a.sessionOptions()
			opts.Cols, opts.Rows = c.Header.Width, c.Header.Height
			session, err := terminal.Attach(cmd.Context(), cast.NewReplayer(c), opts)
			if err != nil {
				return err
			}
			a.session = session

			e := executor.New(session,
				executor.WithLogger(a.logger),
				executor.WithMetrics(a.metrics))

			for _, command := range c.Commands() {
				out, err := e.Execute(cmd.Context(), command)
				if err != nil {
					return fmt.Errorf("replay %q: %w", command, err)
				}
				fmt.Fprintf(s.out, "$ %s\n", command)
				a.printOutput(out)
			}
			return nil
		},
	}
}
