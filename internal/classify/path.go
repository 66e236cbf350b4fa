package classify

import "path/filepath"

// canonicalize resolves path to an absolute, symlink-free form so that two
// different spellings of the same file (relative vs. absolute, or via a
// symlinked ancestor directory) compare equal during a self-scan (spec §4.3
// tier 3's "equal ⇒ UNIQUE, different ⇒ DUPLICATE" rule).
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}
