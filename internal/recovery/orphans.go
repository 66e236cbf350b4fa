package recovery

import (
	"context"
	"fmt"
	"os"

	"github.com/mr3od/bgate/internal/logx"
	"github.com/mr3od/bgate/internal/move"
	"github.com/mr3od/bgate/internal/store"
)

// RecoverOrphans is recovery phase 3 (spec §4.7 step 3): every pending
// orphan whose file still exists is moved back to its original path and
// marked recovered; otherwise it is marked failed.
func RecoverOrphans(ctx context.Context, idx store.Store, log logx.Sink) error {
	pending, err := idx.GetPendingOrphans(ctx)
	if err != nil {
		return fmt.Errorf("recovery: listing pending orphans: %w", err)
	}

	recovered, failed := 0, 0
	for _, o := range pending {
		if _, statErr := os.Stat(o.OrphanPath); statErr != nil {
			if err := idx.UpdateOrphanStatus(ctx, o.ID, store.OrphanFailed); err != nil {
				return fmt.Errorf("recovery: failing orphan %d: %w", o.ID, err)
			}
			failed++
			continue
		}

		if err := move.Move(o.OrphanPath, o.OriginalPath); err != nil {
			log.Warningf("orphan recovery: could not move %s back to %s: %v", o.OrphanPath, o.OriginalPath, err)
			if err := idx.UpdateOrphanStatus(ctx, o.ID, store.OrphanFailed); err != nil {
				return fmt.Errorf("recovery: failing orphan %d: %w", o.ID, err)
			}
			failed++
			continue
		}

		if err := idx.UpdateOrphanStatus(ctx, o.ID, store.OrphanRecovered); err != nil {
			return fmt.Errorf("recovery: marking orphan %d recovered: %w", o.ID, err)
		}
		recovered++
	}

	log.Infof("orphan recovery: %d recovered, %d failed", recovered, failed)
	return nil
}
