package sqlite

import (
	"context"
	"fmt"

	"github.com/mr3od/bgate/internal/store"
)

// Stats implements store.Store, mirroring original_source's stats property:
// a single snapshot of index-wide counts for cmd/bgate stats.
func (s *Store) Stats(ctx context.Context) (store.Stats, error) {
	var out store.Stats
	out.SchemaVersion = s.ver

	if err := s.conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM size_entries`).Scan(&out.UniqueSizes); err != nil {
		return store.Stats{}, fmt.Errorf("sqlite: stats unique_sizes: %w", err)
	}
	if err := s.conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM fringe_entries`).Scan(&out.FringeEntries); err != nil {
		return store.Stats{}, fmt.Errorf("sqlite: stats fringe_entries: %w", err)
	}
	if err := s.conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM full_entries`).Scan(&out.FullEntries); err != nil {
		return store.Stats{}, fmt.Errorf("sqlite: stats full_entries: %w", err)
	}

	orphanCount, err := s.OrphanCount(ctx)
	if err != nil {
		return store.Stats{}, err
	}
	out.OrphanCount = orphanCount

	pendingJournal, err := s.PendingJournalCount(ctx)
	if err != nil {
		return store.Stats{}, err
	}
	out.PendingJournal = pendingJournal

	return out, nil
}
