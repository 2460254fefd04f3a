package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/zterm/internal/ansi"
)

func newCleanCmd(s *streams) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Render terminal control sequences in stdin as plain text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(s.in)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(s.out, ansi.Clean(string(data)))
			return err
		},
	}
}
