package sqlite

import (
	"context"
	"testing"

	"github.com/mr3od/bgate/internal/store"
)

func TestOrphanLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.PendingOrphanCount(ctx)
	if err != nil {
		t.Fatalf("PendingOrphanCount failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("PendingOrphanCount on empty registry = %d, want 0", n)
	}

	id, err := s.AddOrphan(ctx, "/incoming/a.bin", "/orphans/a.bin.1", 2048)
	if err != nil {
		t.Fatalf("AddOrphan failed: %v", err)
	}

	n, err = s.PendingOrphanCount(ctx)
	if err != nil {
		t.Fatalf("PendingOrphanCount failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("PendingOrphanCount after insert = %d, want 1", n)
	}

	pending, err := s.GetPendingOrphans(ctx)
	if err != nil {
		t.Fatalf("GetPendingOrphans failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id || pending[0].Status != store.OrphanPending {
		t.Fatalf("GetPendingOrphans = %+v, want one pending record with id %d", pending, id)
	}
	if pending[0].RecoveredAt != nil {
		t.Fatalf("expected RecoveredAt nil for a pending record, got %v", pending[0].RecoveredAt)
	}

	if err := s.UpdateOrphanStatus(ctx, id, store.OrphanRecovered); err != nil {
		t.Fatalf("UpdateOrphanStatus(recovered) failed: %v", err)
	}

	n, err = s.PendingOrphanCount(ctx)
	if err != nil {
		t.Fatalf("PendingOrphanCount failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("PendingOrphanCount after recovery = %d, want 0", n)
	}

	pending, err = s.GetPendingOrphans(ctx)
	if err != nil {
		t.Fatalf("GetPendingOrphans failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending orphans after recovery, got %+v", pending)
	}
}

func TestOrphanStatusFailed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddOrphan(ctx, "/incoming/a.bin", "/orphans/a.bin.1", 2048)
	if err != nil {
		t.Fatalf("AddOrphan failed: %v", err)
	}
	if err := s.UpdateOrphanStatus(ctx, id, store.OrphanFailed); err != nil {
		t.Fatalf("UpdateOrphanStatus(failed) failed: %v", err)
	}

	n, err := s.PendingOrphanCount(ctx)
	if err != nil {
		t.Fatalf("PendingOrphanCount failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("PendingOrphanCount after failure = %d, want 0", n)
	}
}
