package register

import (
	"context"
	"fmt"

	"github.com/mr3od/bgate/internal/classify"
	"github.com/mr3od/bgate/internal/move"
	"github.com/mr3od/bgate/internal/recovery"
	"github.com/mr3od/bgate/internal/store"
)

// compensate is the duplicate-conflict compensator (spec §4.5): invoked
// when phase 3's add_full reports that another registration won the race
// for this digest between the tier-3 lookup and the tier-3 insert. It
// reverses the move just performed and returns a DUPLICATE classification
// pointing at the pre-existing stored path.
func (p *Pipeline) compensate(ctx context.Context, originalPath, destPath string, full [16]byte, size int64, originalJournalID int64) (classify.Result, string, error) {
	if err := p.Store.Begin(ctx); err != nil {
		return classify.Result{}, destPath, fmt.Errorf("register: begin compensator journal transaction: %w", err)
	}
	compJournalID, err := p.Store.JournalMove(ctx, destPath, originalPath, size)
	if err != nil {
		_ = p.Store.Rollback()
		return classify.Result{}, destPath, fmt.Errorf("register: journaling compensating move: %w", err)
	}
	if err := p.Store.UpdateMovePhase(ctx, compJournalID, store.PhaseMoving); err != nil {
		_ = p.Store.Rollback()
		return classify.Result{}, destPath, fmt.Errorf("register: transitioning compensating journal %d to moving: %w", compJournalID, err)
	}
	if err := p.Store.Commit(); err != nil {
		return classify.Result{}, destPath, fmt.Errorf("register: committing compensator journal transaction: %w", err)
	}

	if err := move.Move(destPath, originalPath); err != nil {
		return p.compensateFailed(ctx, originalPath, destPath, size, compJournalID, originalJournalID, full, err)
	}

	if err := p.finishCompensation(ctx, compJournalID, originalJournalID, store.PhaseCompleted); err != nil {
		return classify.Result{}, originalPath, err
	}

	storedPath, ok, err := p.Store.FullLookup(ctx, full)
	if err != nil {
		return classify.Result{}, originalPath, fmt.Errorf("register: resolving stored path after compensation: %w", err)
	}
	if !ok {
		return classify.Result{}, originalPath, fmt.Errorf("register: no stored path found for digest after compensation")
	}

	return classify.Result{Status: classify.StatusDuplicate, Tier: 3, StoredPath: storedPath, Size: size}, originalPath, nil
}

// compensateFailed handles a failed reverse move (spec §4.5 step 3): mark
// the compensating row failed, register an orphan, and fall back to the
// emergency log if the orphan insert itself fails. The original journal row
// must still terminate failed before returning.
func (p *Pipeline) compensateFailed(ctx context.Context, originalPath, destPath string, size int64, compJournalID, originalJournalID int64, full [16]byte, moveErr error) (classify.Result, string, error) {
	if err := p.finishCompensation(ctx, compJournalID, originalJournalID, store.PhaseFailed); err != nil {
		return classify.Result{}, destPath, err
	}

	if _, err := p.Store.AddOrphan(ctx, originalPath, destPath, size); err != nil {
		rec := recovery.NewEmergencyOrphanRecord(originalPath, destPath, size, p.DBPath)
		if logErr := recovery.AppendEmergencyOrphan(p.DBPath, rec); logErr != nil {
			p.Log.Criticalf("cannot record orphan %s (original %s) after failed compensation: %v", destPath, originalPath, logErr)
		}
	}

	return classify.Result{}, destPath, fmt.Errorf("register: compensating move %s -> %s failed: %w", destPath, originalPath, moveErr)
}

// finishCompensation transitions both journal rows to their terminal
// states within a single transaction. The original row always ends failed,
// win or lose.
func (p *Pipeline) finishCompensation(ctx context.Context, compJournalID, originalJournalID int64, compPhase store.MovePhase) error {
	if err := p.Store.Begin(ctx); err != nil {
		return fmt.Errorf("register: begin compensation-finish transaction: %w", err)
	}
	if err := p.Store.UpdateMovePhase(ctx, compJournalID, compPhase); err != nil {
		_ = p.Store.Rollback()
		return fmt.Errorf("register: setting compensating journal %d to %s: %w", compJournalID, compPhase, err)
	}
	if err := p.Store.UpdateMovePhase(ctx, originalJournalID, store.PhaseFailed); err != nil {
		_ = p.Store.Rollback()
		return fmt.Errorf("register: failing original journal %d: %w", originalJournalID, err)
	}
	if err := p.Store.Commit(); err != nil {
		return fmt.Errorf("register: committing compensation-finish transaction: %w", err)
	}
	return nil
}
