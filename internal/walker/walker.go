// Package walker implements the directory walker (spec §4.8): it yields
// candidate files from a root directory, applying an ignore set and an
// optional modification-time floor, without following symlinks.
package walker

import (
	"os"
	"path/filepath"
	"time"

	"github.com/mr3od/bgate/internal/logx"
)

// Candidate is one file the walker yields to its caller.
type Candidate struct {
	Path string
	Info os.FileInfo
}

// Options configures a Walk call.
type Options struct {
	// Recursive enables descent into subdirectories.
	Recursive bool
	// IgnoreNames supplements the built-in ignore set.
	IgnoreNames []string
	// Since, if non-zero, filters out candidates whose ModTime predates it
	// (the --since flag of cmd/bgate scan). Additive only: it never
	// changes classification, only which files reach it.
	Since time.Time
}

// Walk enumerates root, invoking fn for every non-ignored entry. Any
// per-entry I/O error is logged and that entry skipped, never returned as a
// fatal error; only an error returned by fn itself aborts the walk.
func Walk(root string, opts Options, log logx.Sink, fn func(Candidate) error) error {
	ignore, err := newIgnoreSet(root, opts.IgnoreNames)
	if err != nil {
		return err
	}
	return walkDir(root, ignore, opts, log, fn)
}

func walkDir(dir string, ignore *ignoreSet, opts Options, log logx.Sink, fn func(Candidate) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warningf("walker: reading directory %s: %v", dir, err)
		return nil
	}

	for _, e := range entries {
		name := e.Name()
		if ignore.ignores(name) {
			continue
		}
		full := filepath.Join(dir, name)

		if e.Type()&os.ModeSymlink != 0 {
			info, err := e.Info()
			if err != nil {
				log.Warningf("walker: lstat %s: %v", full, err)
				continue
			}
			if err := fn(Candidate{Path: full, Info: info}); err != nil {
				return err
			}
			continue
		}

		if e.IsDir() {
			if opts.Recursive {
				if err := walkDir(full, ignore, opts, log, fn); err != nil {
					return err
				}
			}
			continue
		}

		info, err := e.Info()
		if err != nil {
			log.Warningf("walker: stat %s: %v", full, err)
			continue
		}
		if !opts.Since.IsZero() && info.ModTime().Before(opts.Since) {
			continue
		}
		if err := fn(Candidate{Path: full, Info: info}); err != nil {
			return err
		}
	}
	return nil
}
