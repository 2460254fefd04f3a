// Package config provides 12-factor configuration for zterm.
//
// Configuration is loaded from environment variables with defaults. CLI
// flags override individual values after loading.
//
// Configuration Sections:
//   - Terminal: shell, PTY size, polling and timeouts
//   - Review: safe mode and command policy file
//   - Recording: asciicast output path
//   - Logging: log level and output format
//   - Metrics: Prometheus listen address
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Println(cfg.Terminal.Shell, cfg.Terminal.PollInterval)
//
// Environment Variables:
//   - ZTERM_SHELL, ZTERM_TERM, ZTERM_COLS, ZTERM_ROWS, ZTERM_WORKDIR
//   - ZTERM_POLL_INTERVAL, ZTERM_READ_CHUNK_SIZE
//   - ZTERM_STARTUP_TIMEOUT, ZTERM_COMMAND_TIMEOUT, ZTERM_MIRROR_CWD
//   - ZTERM_SAFE_MODE, ZTERM_POLICY_FILE
//   - ZTERM_RECORD_PATH
//   - LOG_LEVEL, LOG_DEV
//   - METRICS_ADDR
package config
