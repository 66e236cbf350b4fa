// Package move implements the durable move primitive: hard link the
// destination into place, fsync the directories involved in the right
// order, then unlink the source. A crash at any point after this function
// begins leaves the filesystem in a state the recovery subsystem can
// reconcile (internal/recovery).
package move

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrCrossDevice is returned when src and dst live on different filesystems;
// a hard link cannot cross a device boundary.
var ErrCrossDevice = errors.New("move: cross-device destination")

// ErrDestExists is returned when dst already exists.
var ErrDestExists = errors.New("move: destination already exists")

// Move hard-links src to dst, durably, then unlinks src. On success src no
// longer exists and dst holds identical content; both effects survive a
// crash. On any failure before the source unlink, src is left untouched.
func Move(src, dst string) error {
	dstDir := filepath.Dir(dst)
	missing, err := missingAncestors(dstDir)
	if err != nil {
		return fmt.Errorf("move: resolving ancestors of %s: %w", dstDir, err)
	}

	return criticalSection(func() error {
		return doMove(src, dst, missing)
	})
}

// doMove runs steps 3-8 of the algorithm; it assumes the caller has already
// installed signal deferral around it.
func doMove(src, dst string, missing []string) error {
	for _, dir := range missing {
		if err := os.Mkdir(dir, 0o755); err != nil && !os.IsExist(err) {
			return fmt.Errorf("move: creating ancestor %s: %w", dir, err)
		}
	}

	if err := unix.Link(src, dst); err != nil {
		switch err {
		case unix.EEXIST:
			return fmt.Errorf("move: %w: %s", ErrDestExists, dst)
		case unix.EXDEV:
			return fmt.Errorf("move: %w: %s -> %s", ErrCrossDevice, src, dst)
		default:
			return fmt.Errorf("move: link %s -> %s: %w", src, dst, err)
		}
	}
	if err := fireHook("post-link"); err != nil {
		return err
	}

	// Deepest-first: missing is ordered root-to-leaf (see missingAncestors),
	// so fsync its parents in reverse.
	for i := len(missing) - 1; i >= 0; i-- {
		if err := fsyncDir(filepath.Dir(missing[i])); err != nil {
			return fmt.Errorf("move: fsync ancestor parent %s: %w", filepath.Dir(missing[i]), err)
		}
	}

	if err := fsyncDir(filepath.Dir(dst)); err != nil {
		return fmt.Errorf("move: fsync dest parent: %w", err)
	}
	if err := fireHook("post-fsync-dest"); err != nil {
		return err
	}

	if err := unix.Unlink(src); err != nil {
		return fmt.Errorf("move: unlink source %s: %w", src, err)
	}
	if err := fireHook("post-unlink-source"); err != nil {
		return err
	}

	srcDir := filepath.Dir(src)
	if err := fsyncDir(srcDir); err != nil {
		return fmt.Errorf("move: fsync source parent (1st): %w", err)
	}
	if err := fsyncDir(srcDir); err != nil {
		return fmt.Errorf("move: fsync source parent (2nd): %w", err)
	}

	return nil
}

// missingAncestors returns every directory from the nearest existing
// ancestor of dir down to dir itself, in root-to-leaf order, that does not
// yet exist on disk.
func missingAncestors(dir string) ([]string, error) {
	var missing []string
	cur := dir
	for {
		_, err := os.Stat(cur)
		if err == nil {
			break
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
		missing = append(missing, cur)
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	// missing was built leaf-to-root; reverse to root-to-leaf so mkdir
	// succeeds in order.
	for i, j := 0, len(missing)-1; i < j; i, j = i+1, j-1 {
		missing[i], missing[j] = missing[j], missing[i]
	}
	return missing, nil
}

// fsyncDir opens dir and fsyncs it, matching the spec's directory-fsync
// requirement for durability of directory-entry changes (link/unlink).
func fsyncDir(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	return unix.Fsync(fd)
}
