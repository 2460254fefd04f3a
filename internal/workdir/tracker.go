package workdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/shlex"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/zterm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zterm/internal/logging"
)

var (
	// ErrUnsupported is returned when the platform cannot report another
	// process's working directory.
	ErrUnsupported = errors.New("process working directory lookup not supported")
)

// Options configures a Tracker.
type Options struct {
	// Mirror makes the tracker chdir the current process. With Mirror off
	// the directory is only tracked.
	Mirror  bool
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// Tracker follows the working directory of a shell session.
type Tracker struct {
	mu      sync.Mutex
	dir     string
	prev    string
	mirror  bool
	lookup  func(pid int) (string, error)
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New creates a tracker starting at the current process directory.
func New(opts Options) (*Tracker, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}

	return &Tracker{
		dir:     dir,
		prev:    dir,
		mirror:  opts.Mirror,
		lookup:  processDir,
		logger:  logging.OrNop(opts.Logger).Component("workdir"),
		metrics: opts.Metrics,
	}, nil
}

// Dir returns the last known directory of the shell.
func (t *Tracker) Dir() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir
}

// Observe updates the tracker after command ran in the shell with the
// given pid. A pid of 0 means the process is unknown. It reports whether
// the directory changed. A failed chdir leaves the tracked directory as is.
func (t *Tracker) Observe(command string, pid int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	target, ok := t.resolve(command, pid)
	if !ok || target == t.dir {
		return false, nil
	}

	if t.mirror {
		if err := os.Chdir(target); err != nil {
			return false, fmt.Errorf("chdir %s: %w", target, err)
		}
	}

	t.logger.Debug("Working directory changed",
		zap.String("from", t.dir),
		zap.String("to", target))
	t.prev, t.dir = t.dir, target
	t.metrics.RecordCwdChange()
	return true, nil
}

func (t *Tracker) resolve(command string, pid int) (string, bool) {
	if pid > 0 && t.lookup != nil {
		dir, err := t.lookup(pid)
		if err == nil {
			return dir, true
		}
		if !errors.Is(err, ErrUnsupported) {
			t.logger.Debug("Process directory lookup failed",
				zap.Int("pid", pid),
				zap.Error(err))
		}
	}
	return t.parseCd(command)
}

// parseCd recognizes commands of exactly the form "cd <dir>".
func (t *Tracker) parseCd(command string) (string, bool) {
	words, err := shlex.Split(command)
	if err != nil || len(words) != 2 || words[0] != "cd" {
		return "", false
	}

	dir := words[1]
	switch {
	case dir == "-":
		return t.prev, true
	case dir == "~" || strings.HasPrefix(dir, "~/"):
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	case !filepath.IsAbs(dir):
		dir = filepath.Join(t.dir, dir)
	}
	return filepath.Clean(dir), true
}
