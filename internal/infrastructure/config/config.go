package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Terminal  TerminalConfig
	Review    ReviewConfig
	Recording RecordingConfig
	Logging   LogConfig
	Metrics   MetricsConfig
}

// TerminalConfig holds shell session configuration. An empty Shell means
// /bin/bash, or /bin/sh where bash is missing. The shell skips its rc files
// unless RCFiles is set, since they usually replace PS1.
type TerminalConfig struct {
	Shell          string        `envconfig:"ZTERM_SHELL"`
	PS1            string        `envconfig:"ZTERM_PS1" default:"zterm$ "`
	RCFiles        bool          `envconfig:"ZTERM_RC_FILES" default:"false"`
	Term           string        `envconfig:"ZTERM_TERM" default:"xterm-256color"`
	WorkDir        string        `envconfig:"ZTERM_WORKDIR"`
	Cols           int           `envconfig:"ZTERM_COLS" default:"80"`
	Rows           int           `envconfig:"ZTERM_ROWS" default:"24"`
	PollInterval   time.Duration `envconfig:"ZTERM_POLL_INTERVAL" default:"100ms"`
	ReadChunkSize  int           `envconfig:"ZTERM_READ_CHUNK_SIZE" default:"1000"`
	StartupTimeout time.Duration `envconfig:"ZTERM_STARTUP_TIMEOUT" default:"5s"`
	CommandTimeout time.Duration `envconfig:"ZTERM_COMMAND_TIMEOUT" default:"30s"`
	MirrorCwd      bool          `envconfig:"ZTERM_MIRROR_CWD" default:"true"`
}

// ReviewConfig holds command review configuration.
type ReviewConfig struct {
	SafeMode   bool   `envconfig:"ZTERM_SAFE_MODE" default:"true"`
	PolicyFile string `envconfig:"ZTERM_POLICY_FILE"`
}

// RecordingConfig holds session recording configuration.
type RecordingConfig struct {
	Path string `envconfig:"ZTERM_RECORD_PATH"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// MetricsConfig holds Prometheus exporter configuration.
type MetricsConfig struct {
	Addr string `envconfig:"METRICS_ADDR"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Terminal: TerminalConfig{
			PS1:            "zterm$ ",
			Term:           "xterm-256color",
			Cols:           80,
			Rows:           24,
			PollInterval:   100 * time.Millisecond,
			ReadChunkSize:  1000,
			StartupTimeout: 5 * time.Second,
			CommandTimeout: 30 * time.Second,
			MirrorCwd:      true,
		},
		Review: ReviewConfig{
			SafeMode: true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Validate rejects values the terminal session cannot work with.
func (c *Config) Validate() error {
	t := c.Terminal
	switch {
	case t.Cols <= 0 || t.Rows <= 0:
		return fmt.Errorf("invalid config: terminal size %dx%d", t.Cols, t.Rows)
	case t.PollInterval <= 0:
		return fmt.Errorf("invalid config: poll interval must be positive")
	case t.ReadChunkSize <= 0:
		return fmt.Errorf("invalid config: read chunk size must be positive")
	case t.StartupTimeout <= 0 || t.CommandTimeout <= 0:
		return fmt.Errorf("invalid config: timeouts must be positive")
	case strings.HasSuffix(t.PS1, "\n"):
		return fmt.Errorf("invalid config: PS1 must not end with a newline")
	case strings.Contains(t.PS1, `\w`) || strings.Contains(t.PS1, `\W`):
		return fmt.Errorf("invalid config: PS1 %q changes with the working directory", t.PS1)
	}
	return nil
}
