// Package engine is the facade tying the index store, classifier,
// registration pipeline, recovery subsystem, and directory walker together
// into the single entry point original_source's FileDeduplicator exposes:
// Open/Close, ProcessFile/ProcessDirectory, Stats, and RecoverOrphans.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/mr3od/bgate/internal/classify"
	"github.com/mr3od/bgate/internal/logx"
	"github.com/mr3od/bgate/internal/recovery"
	"github.com/mr3od/bgate/internal/register"
	"github.com/mr3od/bgate/internal/store"
	sqlitestore "github.com/mr3od/bgate/internal/store/sqlite"
	"github.com/mr3od/bgate/internal/walker"
)

// Options configures Open.
type Options struct {
	// DBPath is the index database path (required).
	DBPath string
	// ContentRoot, if non-empty, is the content-addressed store root that
	// UNIQUE candidates are durably moved into. Empty means in-place
	// indexing only.
	ContentRoot string
	// Log receives structured progress and warning output. Defaults to a
	// discard sink.
	Log logx.Sink
}

// Engine is one open dedupe session against a single index database. It is
// not safe for concurrent use by more than one process: Open takes an
// exclusive flock on a sidecar <db>.lock file (spec §5's single-writer
// model), matching the teacher's cmd/bd sync lock pattern.
type Engine struct {
	store   store.Store
	lock    *flock.Flock
	opts    Options
	log     logx.Sink
	pipeline *register.Pipeline
}

// FaultPoint, when non-nil, is called at named points inside Open and
// ProcessFile ("post-open-pre-recovery", "post-classify") so
// tests can abort mid-registration and assert recovered state on the next
// Open. It is test-only scaffolding, never set outside _test.go files in
// this package.
var FaultPoint func(name string)

func fault(name string) {
	if FaultPoint != nil {
		FaultPoint(name)
	}
}

// Open acquires the single-writer lock, opens the index store, runs the
// three-phase recovery subsystem (spec §4.7), and returns a ready Engine.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	if opts.DBPath == "" {
		return nil, fmt.Errorf("engine: DBPath is required")
	}
	if opts.Log == nil {
		opts.Log = logx.NewDiscardSink()
	}

	if err := ensureDir(filepath.Dir(opts.DBPath)); err != nil {
		return nil, fmt.Errorf("engine: preparing %s: %w", filepath.Dir(opts.DBPath), err)
	}

	lockPath := opts.DBPath + ".lock"
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("engine: acquiring lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("engine: another bgate process holds %s", lockPath)
	}

	idx, err := sqlitestore.Open(ctx, opts.DBPath, sqlitestore.Options{})
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("engine: opening store: %w", err)
	}

	if opts.ContentRoot != "" {
		if err := ensureDir(opts.ContentRoot); err != nil {
			_ = idx.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("engine: preparing content root %s: %w", opts.ContentRoot, err)
		}
	}

	fault("post-open-pre-recovery")

	if err := recovery.Run(ctx, idx, opts.DBPath, opts.Log); err != nil {
		_ = idx.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("engine: recovery: %w", err)
	}

	return &Engine{
		store: idx,
		lock:  lock,
		opts:  opts,
		log:   opts.Log,
		pipeline: &register.Pipeline{
			Store:       idx,
			ContentRoot: opts.ContentRoot,
			DBPath:      opts.DBPath,
			Log:         opts.Log,
		},
	}, nil
}

// Close releases the store connection and the single-writer lock.
func (e *Engine) Close() error {
	closeErr := e.store.Close()
	if err := e.lock.Unlock(); err != nil && closeErr == nil {
		closeErr = fmt.Errorf("engine: releasing lock: %w", err)
	}
	return closeErr
}

// ProcessResult is the outcome of processing a single candidate file,
// matching the literal {path, original_path, ...} contract of spec §6:
// OriginalPath is always the path ProcessFile was called with; Path is
// where the file actually lives afterward. When a move occurred, Path
// equals the content-store destination; otherwise Path equals
// OriginalPath (duplicates are left in place, spec §4.4, and a candidate
// processed with no content store configured is never moved).
type ProcessResult struct {
	OriginalPath string
	classify.Result
	Path string
}

// ProcessFile classifies path and, if UNIQUE, runs it through the
// registration pipeline.
func (e *Engine) ProcessFile(ctx context.Context, path string) (ProcessResult, error) {
	res, err := classify.Classify(ctx, e.store, path)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("engine: classifying %s: %w", path, err)
	}

	fault("post-classify")

	if res.Status != classify.StatusUnique {
		// Neither a duplicate nor a skipped candidate is ever moved: the
		// file stays at path. res.StoredPath (for StatusDuplicate) is the
		// pre-existing file this candidate matches, not this file's own
		// location, and remains reachable through the embedded Result.
		return ProcessResult{OriginalPath: path, Result: res, Path: path}, nil
	}

	registered, storedPath, err := e.pipeline.Register(ctx, path, res)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("engine: registering %s: %w", path, err)
	}
	return ProcessResult{OriginalPath: path, Result: registered, Path: storedPath}, nil
}

// DirectoryStats summarizes a ProcessDirectory run.
type DirectoryStats struct {
	Scanned   int
	Unique    int
	Duplicate int
	Skipped   int
}

// ProcessDirectory walks root (spec §4.8) and runs ProcessFile on every
// candidate, logging but not aborting on a per-file error.
func (e *Engine) ProcessDirectory(ctx context.Context, root string, opts walker.Options) (DirectoryStats, error) {
	var stats DirectoryStats
	err := walker.Walk(root, opts, e.log, func(c walker.Candidate) error {
		stats.Scanned++
		res, err := e.ProcessFile(ctx, c.Path)
		if err != nil {
			e.log.Warningf("engine: processing %s: %v", c.Path, err)
			stats.Skipped++
			return nil
		}
		switch res.Status {
		case classify.StatusUnique:
			stats.Unique++
		case classify.StatusDuplicate:
			stats.Duplicate++
		case classify.StatusSkipped:
			stats.Skipped++
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("engine: walking %s: %w", root, err)
	}
	return stats, nil
}

// Stats returns the current index-wide counts.
func (e *Engine) Stats(ctx context.Context) (store.Stats, error) {
	return e.store.Stats(ctx)
}

// RecoverOrphans re-runs the orphan-recovery phase on demand (bgate
// recover), mirroring original_source's recover_orphans.
func (e *Engine) RecoverOrphans(ctx context.Context) error {
	return recovery.RecoverOrphans(ctx, e.store, e.log)
}

// ListOrphans returns all pending orphan records for operator review.
func (e *Engine) ListOrphans(ctx context.Context) ([]store.OrphanRecord, error) {
	return e.store.GetPendingOrphans(ctx)
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
