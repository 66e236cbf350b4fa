package recovery

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/mr3od/bgate/internal/logx"
	"github.com/mr3od/bgate/internal/store"
)

// ReconcileJournal is recovery phase 2 (spec §4.7 step 2): resolve every
// journal entry left in a non-terminal phase by a prior crash.
func ReconcileJournal(ctx context.Context, idx store.Store, log logx.Sink) error {
	entries, err := idx.GetIncompleteJournalEntries(ctx)
	if err != nil {
		return fmt.Errorf("recovery: listing incomplete journal entries: %w", err)
	}

	planned, moving := 0, 0
	for _, e := range entries {
		switch e.Phase {
		case store.PhasePlanned:
			if err := idx.UpdateMovePhase(ctx, e.ID, store.PhaseFailed); err != nil {
				return fmt.Errorf("recovery: failing planned journal entry %d: %w", e.ID, err)
			}
			planned++
		case store.PhaseMoving:
			if err := reconcileMoving(ctx, idx, e, log); err != nil {
				return err
			}
			moving++
		}
	}
	log.Infof("journal reconciliation: %d planned entries failed, %d moving entries reconciled", planned, moving)
	return nil
}

// reconcileMoving attempts the atomic rollback of spec §4.7 step 2: relink
// dest back to source, unconditionally — no pre-existence checks, since
// stat-then-act would be a TOCTOU race the crash could have already
// resolved one way or the other.
func reconcileMoving(ctx context.Context, idx store.Store, e store.JournalEntry, log logx.Sink) error {
	err := unix.Link(e.DestPath, e.SourcePath)
	switch err {
	case nil:
		if syncErr := fsyncDirParent(e.SourcePath); syncErr != nil {
			return fmt.Errorf("recovery: fsync source parent for journal %d: %w", e.ID, syncErr)
		}
		if unlinkErr := unix.Unlink(e.DestPath); unlinkErr != nil {
			return fmt.Errorf("recovery: unlinking dest for journal %d: %w", e.ID, unlinkErr)
		}
		if syncErr := fsyncDirParent(e.DestPath); syncErr != nil {
			return fmt.Errorf("recovery: fsync dest parent for journal %d: %w", e.ID, syncErr)
		}
		return idx.UpdateMovePhase(ctx, e.ID, store.PhaseFailed)

	case unix.EEXIST:
		// Source already present: the move had already completed far
		// enough that source was recreated (or never removed). Just drop
		// dest.
		if unlinkErr := unix.Unlink(e.DestPath); unlinkErr != nil && unlinkErr != unix.ENOENT {
			return fmt.Errorf("recovery: removing dest for journal %d: %w", e.ID, unlinkErr)
		}
		return idx.UpdateMovePhase(ctx, e.ID, store.PhaseFailed)

	case unix.ENOENT:
		// Dest doesn't exist: the move never completed past the link step.
		return idx.UpdateMovePhase(ctx, e.ID, store.PhaseFailed)

	case unix.EXDEV:
		log.Warningf("journal reconciliation: cross-device entry %d (%s -> %s) left for manual intervention", e.ID, e.SourcePath, e.DestPath)
		return nil

	default:
		return fmt.Errorf("recovery: relinking journal %d (%s -> %s): %w", e.ID, e.DestPath, e.SourcePath, err)
	}
}

func fsyncDirParent(path string) error {
	return fsyncDirPath(parentDir(path))
}
