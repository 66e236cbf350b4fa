package walker

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// defaultIgnoreNames is the built-in ignore set (spec §4.8): dotfile
// VCS/editor/cache directories that never belong in a dedupe scan.
var defaultIgnoreNames = []string{
	".git",
	".svn",
	".hg",
	".idea",
	".vscode",
	".DS_Store",
	"__pycache__",
	".cache",
}

// ignoreSet is the assembled set of names the walker skips, from (a) the
// built-in default, (b) caller-supplied patterns, and (c) a .bgateignore
// file in the scan root.
type ignoreSet struct {
	names map[string]bool
}

// newIgnoreSet builds the ignore set for a single scan root.
func newIgnoreSet(root string, extra []string) (*ignoreSet, error) {
	names := map[string]bool{}
	for _, n := range defaultIgnoreNames {
		names[n] = true
	}
	for _, n := range extra {
		if n != "" {
			names[n] = true
		}
	}

	fromFile, err := readIgnoreFile(filepath.Join(root, ".bgateignore"))
	if err != nil {
		return nil, err
	}
	for _, n := range fromFile {
		names[n] = true
	}

	return &ignoreSet{names: names}, nil
}

func (s *ignoreSet) ignores(name string) bool {
	return s.names[name]
}

// readIgnoreFile parses a .bgateignore file: one literal name per line,
// '#'-comments, blank lines ignored. A missing file is not an error.
func readIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names, scanner.Err()
}
