package register

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mr3od/bgate/internal/classify"
	"github.com/mr3od/bgate/internal/logx"
	"github.com/mr3od/bgate/internal/store"
	sqlitestore "github.com/mr3od/bgate/internal/store/sqlite"
)

func newTestIndex(t *testing.T) *sqlitestore.Store {
	t.Helper()
	ctx := context.Background()
	s, err := sqlitestore.Open(ctx, t.TempDir()+"/index.db", sqlitestore.Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	})
	return s
}

func TestRegisterInPlaceNoContentStore(t *testing.T) {
	idx := newTestIndex(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "a.bin")
	content := bytes.Repeat([]byte{'A'}, 100)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ctx := context.Background()
	classified, err := classify.Classify(ctx, idx, path)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if classified.Status != classify.StatusUnique {
		t.Fatalf("Classify status = %v, want UNIQUE", classified.Status)
	}

	p := &Pipeline{Store: idx, DBPath: dir + "/index.db", Log: logx.NewDiscardSink()}
	res, storedPath, err := p.Register(ctx, path, classified)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.Status != classify.StatusUnique {
		t.Fatalf("Register status = %v, want UNIQUE", res.Status)
	}
	if storedPath != path {
		t.Fatalf("storedPath = %q, want unchanged %q (no content store)", storedPath, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected source file to remain in place: %v", err)
	}

	// Re-classifying the same path now finds it indexed at tier 3, still
	// UNIQUE (self-scan).
	reclassified, err := classify.Classify(ctx, idx, path)
	if err != nil {
		t.Fatalf("re-Classify failed: %v", err)
	}
	if reclassified.Status != classify.StatusUnique {
		t.Fatalf("re-Classify status = %v, want UNIQUE (self-scan)", reclassified.Status)
	}
}

func TestRegisterWithContentStoreMovesFile(t *testing.T) {
	idx := newTestIndex(t)
	dir := t.TempDir()
	incoming := filepath.Join(dir, "incoming")
	store := filepath.Join(dir, "store")
	if err := os.MkdirAll(incoming, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.MkdirAll(store, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	path := filepath.Join(incoming, "a.bin")
	content := bytes.Repeat([]byte{'A'}, 100)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ctx := context.Background()
	classified, err := classify.Classify(ctx, idx, path)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	p := &Pipeline{Store: idx, ContentRoot: store, DBPath: dir + "/index.db", Log: logx.NewDiscardSink()}
	res, storedPath, err := p.Register(ctx, path, classified)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if res.Status != classify.StatusUnique {
		t.Fatalf("Register status = %v, want UNIQUE", res.Status)
	}
	if storedPath == path {
		t.Fatalf("expected file to be relocated into the content store, got unchanged path %q", storedPath)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected source to be gone after move, stat err = %v", err)
	}
	got, err := os.ReadFile(storedPath)
	if err != nil {
		t.Fatalf("ReadFile(storedPath) failed: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("stored content mismatch")
	}

	n, err := idx.PendingJournalCount(ctx)
	if err != nil {
		t.Fatalf("PendingJournalCount failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("PendingJournalCount = %d, want 0 after a clean registration", n)
	}
}

// TestCompensateReversesMoveOnDigestConflict exercises the compensator
// (spec §4.5) directly: it simulates phase 3 discovering, after a file has
// already been moved into the content store, that another registration won
// the race for the same digest.
func TestCompensateReversesMoveOnDigestConflict(t *testing.T) {
	idx := newTestIndex(t)
	dir := t.TempDir()
	contentRoot := filepath.Join(dir, "store")
	if err := os.MkdirAll(contentRoot, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	content := bytes.Repeat([]byte{'A'}, 100)
	preexisting := filepath.Join(dir, "preexisting.bin")
	if err := os.WriteFile(preexisting, content, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ctx := context.Background()
	full := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	size := int64(len(content))

	if err := idx.AddSize(ctx, size); err != nil {
		t.Fatalf("AddSize failed: %v", err)
	}
	if _, err := idx.AddFull(ctx, full, preexisting, nil); err != nil {
		t.Fatalf("AddFull failed: %v", err)
	}

	// Simulate the state right after phase 2's move: the candidate file
	// now sits at destPath, originalPath is where it came from, and an
	// open journal row tracks that move.
	originalPath := filepath.Join(dir, "original.bin")
	destPath := filepath.Join(contentRoot, "conflicting.bin")
	if err := os.Rename(writeTempForCompensator(t, dir, content), destPath); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	journalID, err := idx.JournalMove(ctx, originalPath, destPath, size)
	if err != nil {
		t.Fatalf("JournalMove failed: %v", err)
	}
	if err := idx.UpdateMovePhase(ctx, journalID, store.PhaseMoving); err != nil {
		t.Fatalf("UpdateMovePhase failed: %v", err)
	}

	p := &Pipeline{Store: idx, ContentRoot: contentRoot, DBPath: dir + "/index.db", Log: logx.NewDiscardSink()}
	res, finalPath, err := p.compensate(ctx, originalPath, destPath, full, size, journalID)
	if err != nil {
		t.Fatalf("compensate failed: %v", err)
	}
	if res.Status != classify.StatusDuplicate || res.StoredPath != preexisting {
		t.Fatalf("compensate result = %+v, want DUPLICATE of %q", res, preexisting)
	}
	if finalPath != originalPath {
		t.Fatalf("finalPath = %q, want %q", finalPath, originalPath)
	}

	if _, err := os.Stat(originalPath); err != nil {
		t.Fatalf("expected file restored to original path: %v", err)
	}
	if _, err := os.Stat(destPath); !os.IsNotExist(err) {
		t.Fatalf("expected destPath to be gone after compensation, stat err = %v", err)
	}

	n, err := idx.PendingJournalCount(ctx)
	if err != nil {
		t.Fatalf("PendingJournalCount failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("PendingJournalCount = %d, want 0 (both journal rows terminal)", n)
	}
}

func writeTempForCompensator(t *testing.T, dir string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, "tmp-conflict-source.bin")
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return p
}
