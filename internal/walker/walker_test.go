package walker

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/mr3od/bgate/internal/logx"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile(%q) failed: %v", path, err)
	}
}

func collectPaths(t *testing.T, root string, opts Options) []string {
	t.Helper()
	var got []string
	err := Walk(root, opts, logx.NewDiscardSink(), func(c Candidate) error {
		got = append(got, c.Path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	sort.Strings(got)
	return got
}

func TestWalkNonRecursiveTopLevelOnly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.bin"), []byte("a"))
	writeFile(t, filepath.Join(root, "sub", "b.bin"), []byte("b"))

	got := collectPaths(t, root, Options{Recursive: false})
	want := []string{filepath.Join(root, "a.bin")}
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("collectPaths = %v, want %v", got, want)
	}
}

func TestWalkRecursiveDescendsSubdirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.bin"), []byte("a"))
	writeFile(t, filepath.Join(root, "sub", "b.bin"), []byte("b"))

	got := collectPaths(t, root, Options{Recursive: true})
	want := []string{filepath.Join(root, "a.bin"), filepath.Join(root, "sub", "b.bin")}
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("collectPaths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("collectPaths[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWalkSkipsBuiltinIgnoreNames(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.bin"), []byte("a"))
	writeFile(t, filepath.Join(root, ".git", "config"), []byte("x"))

	got := collectPaths(t, root, Options{Recursive: true})
	for _, p := range got {
		if filepath.Base(filepath.Dir(p)) == ".git" {
			t.Fatalf("expected .git contents to be skipped, got %v", got)
		}
	}
}

func TestWalkHonorsBgateignoreFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.bin"), []byte("a"))
	writeFile(t, filepath.Join(root, "skip.bin"), []byte("b"))
	writeFile(t, filepath.Join(root, ".bgateignore"), []byte("# comment\nskip.bin\n"))

	got := collectPaths(t, root, Options{Recursive: false})
	for _, p := range got {
		if filepath.Base(p) == "skip.bin" {
			t.Fatalf("expected skip.bin to be ignored via .bgateignore, got %v", got)
		}
	}
}

func TestWalkSinceFiltersOldFiles(t *testing.T) {
	root := t.TempDir()
	oldPath := filepath.Join(root, "old.bin")
	newPath := filepath.Join(root, "new.bin")
	writeFile(t, oldPath, []byte("old"))
	writeFile(t, newPath, []byte("new"))

	cutoff := time.Now().Add(1 * time.Hour)
	if err := os.Chtimes(oldPath, time.Now(), time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	got := collectPaths(t, root, Options{Recursive: false, Since: cutoff.Add(-2 * time.Hour)})
	for _, p := range got {
		if p == oldPath {
			t.Fatalf("expected old.bin to be filtered by Since, got %v", got)
		}
	}
}

func TestWalkDoesNotFollowSymlinkedDirectories(t *testing.T) {
	root := t.TempDir()
	target := t.TempDir()
	writeFile(t, filepath.Join(target, "inside.bin"), []byte("x"))

	link := filepath.Join(root, "linked")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}

	got := collectPaths(t, root, Options{Recursive: true})
	for _, p := range got {
		if filepath.Base(p) == "inside.bin" {
			t.Fatalf("expected walker not to follow symlinked directory, got %v", got)
		}
	}
}
