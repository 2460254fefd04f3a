//go:build !linux

package workdir

// processDir is not available on this platform; the tracker falls back to
// parsing cd commands.
func processDir(pid int) (string, error) {
	return "", ErrUnsupported
}
