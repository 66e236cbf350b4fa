// Package recovery implements the three-phase recovery subsystem spec §4.7
// runs on every engine open: emergency-orphan import, journal
// reconciliation, then orphan recovery. Each phase emits a structured
// summary through the injected log sink.
package recovery

import (
	"context"
	"fmt"

	"github.com/mr3od/bgate/internal/logx"
	"github.com/mr3od/bgate/internal/store"
)

// Run executes all three recovery phases in order, as engine.Open requires.
func Run(ctx context.Context, idx store.Store, dbPath string, log logx.Sink) error {
	if err := ImportEmergencyOrphans(ctx, idx, dbPath, log); err != nil {
		return fmt.Errorf("recovery: emergency-orphan import: %w", err)
	}
	if err := ReconcileJournal(ctx, idx, log); err != nil {
		return fmt.Errorf("recovery: journal reconciliation: %w", err)
	}
	if err := RecoverOrphans(ctx, idx, log); err != nil {
		return fmt.Errorf("recovery: orphan recovery: %w", err)
	}
	return nil
}
