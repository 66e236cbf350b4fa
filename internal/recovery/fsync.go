package recovery

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// fsyncDirPath fsyncs a directory by path, the same primitive internal/move
// uses for durable directory-entry changes.
func fsyncDirPath(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	return unix.Fsync(fd)
}

func parentDir(path string) string {
	return filepath.Dir(path)
}
