package sqlite

import (
	"context"
	"testing"

	"github.com/mr3od/bgate/internal/store"
)

func TestJournalMoveLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.PendingJournalCount(ctx)
	if err != nil {
		t.Fatalf("PendingJournalCount failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("PendingJournalCount on empty journal = %d, want 0", n)
	}

	id, err := s.JournalMove(ctx, "/incoming/a.bin", "/store/ab/cdef.bin", 1024)
	if err != nil {
		t.Fatalf("JournalMove failed: %v", err)
	}

	n, err = s.PendingJournalCount(ctx)
	if err != nil {
		t.Fatalf("PendingJournalCount failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("PendingJournalCount after planned entry = %d, want 1", n)
	}

	entries, err := s.GetIncompleteJournalEntries(ctx)
	if err != nil {
		t.Fatalf("GetIncompleteJournalEntries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id || entries[0].Phase != store.PhasePlanned {
		t.Fatalf("GetIncompleteJournalEntries = %+v, want one planned entry with id %d", entries, id)
	}
	if entries[0].CompletedAt != nil {
		t.Fatalf("expected CompletedAt nil for a planned entry, got %v", entries[0].CompletedAt)
	}

	if err := s.UpdateMovePhase(ctx, id, store.PhaseMoving); err != nil {
		t.Fatalf("UpdateMovePhase(moving) failed: %v", err)
	}
	entries, err = s.GetIncompleteJournalEntries(ctx)
	if err != nil {
		t.Fatalf("GetIncompleteJournalEntries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Phase != store.PhaseMoving {
		t.Fatalf("expected phase moving, got %+v", entries)
	}

	if err := s.UpdateMovePhase(ctx, id, store.PhaseCompleted); err != nil {
		t.Fatalf("UpdateMovePhase(completed) failed: %v", err)
	}

	n, err = s.PendingJournalCount(ctx)
	if err != nil {
		t.Fatalf("PendingJournalCount failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("PendingJournalCount after completion = %d, want 0", n)
	}

	entries, err = s.GetIncompleteJournalEntries(ctx)
	if err != nil {
		t.Fatalf("GetIncompleteJournalEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no incomplete entries after completion, got %+v", entries)
	}
}

func TestUpdateMovePhaseFailedSetsCompletedAt(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.JournalMove(ctx, "/incoming/a.bin", "/store/ab/cdef.bin", 1024)
	if err != nil {
		t.Fatalf("JournalMove failed: %v", err)
	}
	if err := s.UpdateMovePhase(ctx, id, store.PhaseFailed); err != nil {
		t.Fatalf("UpdateMovePhase(failed) failed: %v", err)
	}

	n, err := s.PendingJournalCount(ctx)
	if err != nil {
		t.Fatalf("PendingJournalCount failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("PendingJournalCount after failure = %d, want 0 (failed is terminal)", n)
	}
}
