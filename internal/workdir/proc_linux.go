//go:build linux

package workdir

import (
	"fmt"
	"os"
)

// processDir returns the working directory of a running process.
func processDir(pid int) (string, error) {
	return os.Readlink(fmt.Sprintf("/proc/%d/cwd", pid))
}
