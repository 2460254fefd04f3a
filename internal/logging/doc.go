// Package logging builds the zap loggers used across zterm.
//
// Two modes:
//   - Production: JSON lines
//   - Development: colored console output with callers
//
// Logs go to Config.Output, stderr by default, never to stdout, which
// carries command output.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info", Output: os.Stderr})
//	if err != nil {
//		return err
//	}
//	logger = logger.Component("terminal")
//	logger.Info("Shell session started", zap.String("shell", "/bin/bash"))
//	logger.Error("Command failed", zap.Error(err))
package logging
