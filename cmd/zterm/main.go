package main

import (
	"os"
)

// Build information injected via ldflags at build time.
var version = "dev"

func main() {
	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
