// Package register implements the three-phase registration pipeline (spec
// §4.4) invoked for every UNIQUE classification, and the duplicate-conflict
// compensator (spec §4.5) that handles a race between tier-3 lookup and
// tier-3 insert.
package register

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/mr3od/bgate/internal/classify"
	"github.com/mr3od/bgate/internal/digest"
	"github.com/mr3od/bgate/internal/logx"
	"github.com/mr3od/bgate/internal/move"
	"github.com/mr3od/bgate/internal/recovery"
	"github.com/mr3od/bgate/internal/store"
)

// Pipeline registers UNIQUE candidates into the index and, when a content
// store is configured, durably relocates them into it.
type Pipeline struct {
	Store       store.Store
	ContentRoot string // empty: no content store; the source path is the storage path.
	DBPath      string // used to locate the emergency-orphan log.
	Log         logx.Sink
}

// Register runs the pipeline for a single UNIQUE classify.Result, returning
// the final classification (normally unchanged, but DUPLICATE if the
// compensator fires) and the path the file now lives at.
func (p *Pipeline) Register(ctx context.Context, path string, res classify.Result) (classify.Result, string, error) {
	if res.Status != classify.StatusUnique {
		return res, path, fmt.Errorf("register: Register called on non-UNIQUE result (%v)", res.Status)
	}

	if p.ContentRoot == "" {
		return p.registerInPlace(ctx, path, res)
	}
	return p.registerWithMove(ctx, path, res)
}

// registerInPlace handles the no-content-store case: the source path is the
// storage path, so there is nothing to move — only indexing.
func (p *Pipeline) registerInPlace(ctx context.Context, path string, res classify.Result) (classify.Result, string, error) {
	if err := p.Store.Begin(ctx); err != nil {
		return res, path, fmt.Errorf("register: begin phase-3 transaction: %w", err)
	}

	inserted, err := p.indexAt(ctx, path, &res)
	if err != nil {
		_ = p.Store.Rollback()
		return res, path, fmt.Errorf("register: indexing %s: %w", path, err)
	}
	if !inserted {
		if err := p.Store.Rollback(); err != nil {
			return res, path, fmt.Errorf("register: rolling back conflicted in-place registration: %w", err)
		}
		storedPath, ok, lookupErr := p.Store.FullLookup(ctx, *res.FullDigest)
		if lookupErr != nil {
			return res, path, fmt.Errorf("register: resolving conflicting full digest: %w", lookupErr)
		}
		if !ok {
			return res, path, fmt.Errorf("register: full digest conflict reported but lookup found nothing")
		}
		return classify.Result{Status: classify.StatusDuplicate, Tier: 3, StoredPath: storedPath, Size: res.Size}, path, nil
	}

	if err := p.Store.Commit(); err != nil {
		return res, path, fmt.Errorf("register: commit in-place registration: %w", err)
	}
	return res, path, nil
}

// registerWithMove runs the full three-phase pipeline of spec §4.4 against
// a configured content store.
func (p *Pipeline) registerWithMove(ctx context.Context, sourcePath string, res classify.Result) (classify.Result, string, error) {
	for attempt := 0; ; attempt++ {
		destPath, journalID, err := p.phase1Reserve(ctx, sourcePath, res)
		if err != nil {
			return res, sourcePath, err
		}

		moveErr := p.phase2Move(sourcePath, destPath)
		if moveErr == nil {
			return p.phase3Index(ctx, sourcePath, destPath, journalID, res)
		}

		if errors.Is(moveErr, move.ErrDestExists) && attempt < maxCollisionRetries {
			// A concurrent writer (or truncated-digest collision) claimed
			// this name first; the journal row for this attempt is dead,
			// retry naming from scratch.
			if err := p.Store.Begin(ctx); err == nil {
				_ = p.Store.UpdateMovePhase(ctx, journalID, store.PhaseFailed)
				_ = p.Store.Commit()
			}
			continue
		}

		if err := p.Store.Begin(ctx); err != nil {
			return res, sourcePath, fmt.Errorf("register: begin phase-2-failure transaction: %w", err)
		}
		if err := p.Store.UpdateMovePhase(ctx, journalID, store.PhaseFailed); err != nil {
			_ = p.Store.Rollback()
			return res, sourcePath, fmt.Errorf("register: marking journal %d failed: %w", journalID, err)
		}
		if err := p.Store.Commit(); err != nil {
			return res, sourcePath, fmt.Errorf("register: committing phase-2-failure transaction: %w", err)
		}
		return res, sourcePath, fmt.Errorf("register: moving %s to %s: %w", sourcePath, destPath, moveErr)
	}
}

// phase1Reserve computes a destination, journals the planned move, and
// transitions it to moving, all within one transaction.
func (p *Pipeline) phase1Reserve(ctx context.Context, sourcePath string, res classify.Result) (destPath string, journalID int64, err error) {
	destPath, err = reserveDestination(p.ContentRoot, res.FullDigest, filepath.Ext(sourcePath))
	if err != nil {
		return "", 0, fmt.Errorf("register: reserving destination for %s: %w", sourcePath, err)
	}

	if err := p.Store.Begin(ctx); err != nil {
		return "", 0, fmt.Errorf("register: begin phase-1 transaction: %w", err)
	}

	journalID, err = p.Store.JournalMove(ctx, sourcePath, destPath, res.Size)
	if err != nil {
		_ = p.Store.Rollback()
		return "", 0, fmt.Errorf("register: journaling move: %w", err)
	}
	if err := p.Store.UpdateMovePhase(ctx, journalID, store.PhaseMoving); err != nil {
		_ = p.Store.Rollback()
		return "", 0, fmt.Errorf("register: transitioning journal %d to moving: %w", journalID, err)
	}
	if err := p.Store.Commit(); err != nil {
		return "", 0, fmt.Errorf("register: committing phase-1 transaction: %w", err)
	}
	return destPath, journalID, nil
}

// phase2Move ensures the shard directory exists and performs the durable
// move, outside any database transaction (spec §4.4 phase 2).
func (p *Pipeline) phase2Move(sourcePath, destPath string) error {
	shardDir := filepath.Dir(destPath)
	created, err := mkdirShard(shardDir)
	if err != nil {
		return fmt.Errorf("register: creating shard directory %s: %w", shardDir, err)
	}
	if created {
		if err := fsyncDir(p.ContentRoot); err != nil {
			return fmt.Errorf("register: fsync store root after creating %s: %w", shardDir, err)
		}
	}

	return move.Move(sourcePath, destPath)
}

// phase3Index opens a transaction, completes the journal entry, computes
// any digests not yet known from the (now authoritative) stored path, and
// inserts the size/fringe/full rows. A full-digest conflict hands off to
// the duplicate-conflict compensator.
func (p *Pipeline) phase3Index(ctx context.Context, sourcePath, destPath string, journalID int64, res classify.Result) (classify.Result, string, error) {
	if err := p.Store.Begin(ctx); err != nil {
		return res, destPath, p.handlePhase3Failure(ctx, sourcePath, destPath, res, fmt.Errorf("register: begin phase-3 transaction: %w", err))
	}

	if err := p.Store.UpdateMovePhase(ctx, journalID, store.PhaseCompleted); err != nil {
		_ = p.Store.Rollback()
		return res, destPath, p.handlePhase3Failure(ctx, sourcePath, destPath, res, fmt.Errorf("register: completing journal %d: %w", journalID, err))
	}

	if err := rehash(destPath, &res); err != nil {
		_ = p.Store.Rollback()
		return res, destPath, p.handlePhase3Failure(ctx, sourcePath, destPath, res, fmt.Errorf("register: re-hashing %s: %w", destPath, err))
	}

	inserted, err := p.indexAt(ctx, destPath, &res)
	if err != nil {
		_ = p.Store.Rollback()
		return res, destPath, p.handlePhase3Failure(ctx, sourcePath, destPath, res, fmt.Errorf("register: indexing %s: %w", destPath, err))
	}

	if !inserted {
		if err := p.Store.Rollback(); err != nil {
			return res, destPath, fmt.Errorf("register: rolling back conflicted phase-3 transaction: %w", err)
		}
		return p.compensate(ctx, sourcePath, destPath, *res.FullDigest, res.Size, journalID)
	}

	if err := p.Store.Commit(); err != nil {
		return res, destPath, p.handlePhase3Failure(ctx, sourcePath, destPath, res, fmt.Errorf("register: committing phase-3 transaction: %w", err))
	}
	return res, destPath, nil
}

// indexAt inserts size, fringe, and full rows for path, filling in res's
// digests if they are nil. It returns inserted = false only when add_full
// reports a conflict — the signal phase 3 uses to invoke the compensator.
func (p *Pipeline) indexAt(ctx context.Context, path string, res *classify.Result) (bool, error) {
	if err := p.Store.AddSize(ctx, res.Size); err != nil {
		return false, err
	}
	if res.FringeDigest == nil {
		d, err := digest.Fringe(path)
		if err != nil {
			return false, err
		}
		res.FringeDigest = &d
	}
	if _, err := p.Store.AddFringe(ctx, *res.FringeDigest, res.Size, path); err != nil {
		return false, err
	}
	if res.FullDigest == nil {
		d, err := digest.Full(path)
		if err != nil {
			return false, err
		}
		res.FullDigest = &d
	}
	return p.Store.AddFull(ctx, *res.FullDigest, path, nil)
}

// rehash fills in any digest not yet computed, reading from path (the
// post-move, authoritative location).
func rehash(path string, res *classify.Result) error {
	if res.FringeDigest == nil {
		d, err := digest.Fringe(path)
		if err != nil {
			return err
		}
		res.FringeDigest = &d
	}
	if res.FullDigest == nil {
		d, err := digest.Full(path)
		if err != nil {
			return err
		}
		res.FullDigest = &d
	}
	return nil
}

// handlePhase3Failure implements spec §4.4's last paragraph: if phase 3
// failed after the move happened, try to roll the move back; if that also
// fails, register an orphan; if that also fails, fall back to the
// emergency-orphan log.
func (p *Pipeline) handlePhase3Failure(ctx context.Context, sourcePath, destPath string, res classify.Result, cause error) error {
	if rollErr := move.Move(destPath, sourcePath); rollErr == nil {
		return cause
	}

	if _, err := p.Store.AddOrphan(ctx, sourcePath, destPath, res.Size); err == nil {
		p.Log.Warningf("phase-3 failure for %s: registered orphan at %s (%v)", sourcePath, destPath, cause)
		return cause
	}

	rec := recovery.NewEmergencyOrphanRecord(sourcePath, destPath, res.Size, p.DBPath)
	if logErr := recovery.AppendEmergencyOrphan(p.DBPath, rec); logErr != nil {
		p.Log.Criticalf("cannot record orphan %s (original %s): %v", destPath, sourcePath, logErr)
	}
	return cause
}

func mkdirShard(dir string) (created bool, err error) {
	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func fsyncDir(dir string) error {
	fd, err := unix.Open(dir, unix.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	return unix.Fsync(fd)
}
