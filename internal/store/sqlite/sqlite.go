// Package sqlite is the sole Store implementation, backed by the pure-Go
// embedded SQLite engine ncruces/go-sqlite3 (no cgo). It owns pragma tuning,
// schema creation, migrations, and schema-version enforcement (spec §4.1).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/mr3od/bgate/internal/store"
)

// CurrentSchemaVersion is the schema version this binary targets (spec I6).
const CurrentSchemaVersion = 1

// BusyTimeout is the lock-acquisition busy timeout (spec §5).
const BusyTimeout = 5 * time.Second

// Options configures Open.
type Options struct {
	// BusyTimeout overrides BusyTimeout when non-zero.
	BusyTimeout time.Duration
	// CacheSizeKiB overrides the default 64 MiB page cache when non-zero
	// (negative values in the PRAGMA denote KiB, matching SQLite's own
	// convention).
	CacheSizeKiB int
	// MmapSizeBytes overrides the default 256 MiB mmap window when non-zero.
	MmapSizeBytes int64
}

func (o Options) withDefaults() Options {
	if o.BusyTimeout == 0 {
		o.BusyTimeout = BusyTimeout
	}
	if o.CacheSizeKiB == 0 {
		o.CacheSizeKiB = 64_000
	}
	if o.MmapSizeBytes == 0 {
		o.MmapSizeBytes = 256 * 1024 * 1024
	}
	return o
}

// Store is the sqlite-backed store.Store implementation.
type Store struct {
	db  *sql.DB
	tx  *sql.Tx
	ver int
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if absent) the database at path, applies durability
// pragmas, verifies/migrates the schema, and returns a ready Store.
//
// The connection string follows the same file:%s?_pragma=... construction
// the teacher uses for its own read-only diagnostic connections, extended
// with the full durability tuning spec §4.1 requires: WAL journal mode,
// FULL synchronous, a generous page cache, and a memory-mapped read window.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	opts = opts.withDefaults()

	connStr := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=cache_size(-%d)&_pragma=temp_store(MEMORY)&_pragma=mmap_size(%d)&_pragma=foreign_keys(ON)"+
			"&_txlock=immediate",
		path, opts.BusyTimeout.Milliseconds(), opts.CacheSizeKiB, opts.MmapSizeBytes,
	)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// The engine is single-process, single-writer (spec §5); one
	// connection keeps BEGIN IMMEDIATE semantics simple and avoids the
	// driver handing transactional work to a second pooled connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	tables, err := s.tableNames(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: listing tables: %w", err)
	}

	hasAny := len(tables) > 0
	hasVersion := tables["schema_version"]
	if hasAny && !hasVersion {
		return store.ErrLegacySchema
	}

	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("sqlite: applying schema: %w", err)
	}

	if !hasVersion {
		if err := s.stampVersion(ctx, CurrentSchemaVersion); err != nil {
			return fmt.Errorf("sqlite: stamping initial schema version: %w", err)
		}
	}

	current, err := s.readSchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: reading schema version: %w", err)
	}

	switch {
	case current > CurrentSchemaVersion:
		return store.ErrSchemaTooNew
	case current < CurrentSchemaVersion:
		if err := s.migrate(ctx, current); err != nil {
			return fmt.Errorf("sqlite: migrating schema from v%d: %w", current, err)
		}
		current = CurrentSchemaVersion
	}

	s.ver = current
	return nil
}

func (s *Store) tableNames(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = true
	}
	return out, rows.Err()
}

func (s *Store) readSchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}

func (s *Store) stampVersion(ctx context.Context, version int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
		version, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// SchemaVersion implements store.Store.
func (s *Store) SchemaVersion() int { return s.ver }

// Close implements store.Store.
func (s *Store) Close() error {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}

// execer is satisfied by both *sql.DB and *sql.Tx; queries route through
// whichever is current so callers never need to know if a transaction is
// open.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) conn() execer {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}
