// Package store defines the index-store contract the rest of the engine is
// built against (spec §4.1). The sole implementation lives in store/sqlite;
// this interface exists so the registration pipeline, classifier, and
// recovery subsystem depend on behavior, not on database/sql directly.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotOpen names the not-open store condition. The sqlite implementation
// does not return it: a method called after Close fails with the
// underlying database/sql error instead.
var ErrNotOpen = errors.New("store: not open")

// ErrSchemaTooNew is returned by Open when the database's schema_version
// exceeds the compiled-in CurrentSchemaVersion (spec §4.1, I6).
var ErrSchemaTooNew = errors.New("store: database schema is newer than supported")

// ErrLegacySchema is returned by Open when the database has tables but no
// schema_version relation.
var ErrLegacySchema = errors.New("store: legacy database has no schema_version table; unsupported")

// MovePhase is the lifecycle state of a JournalEntry.
type MovePhase string

const (
	PhasePlanned  MovePhase = "planned"
	PhaseMoving   MovePhase = "moving"
	PhaseCompleted MovePhase = "completed"
	PhaseFailed   MovePhase = "failed"
)

// OrphanStatus is the lifecycle state of an OrphanRecord.
type OrphanStatus string

const (
	OrphanPending   OrphanStatus = "pending"
	OrphanRecovered OrphanStatus = "recovered"
	OrphanFailed    OrphanStatus = "failed"
)

// JournalEntry is a row of the move_journal relation (spec §3).
type JournalEntry struct {
	ID          int64
	SourcePath  string
	DestPath    string
	FileSize    int64
	CreatedAt   time.Time
	Phase       MovePhase
	CompletedAt *time.Time
}

// OrphanRecord is a row of the orphan_registry relation (spec §3).
type OrphanRecord struct {
	ID           int64
	OriginalPath string
	OrphanPath   string
	FileSize     int64
	CreatedAt    time.Time
	RecoveredAt  *time.Time
	Status       OrphanStatus
}

// Stats is a snapshot of index-wide counts (spec §9's stats property,
// extended with schema version and journal/orphan backlog sizes so
// cmd/bgate stats has a single call to make).
type Stats struct {
	UniqueSizes    int `json:"unique_sizes"`
	FringeEntries  int `json:"fringe_entries"`
	FullEntries    int `json:"full_entries"`
	SchemaVersion  int `json:"schema_version"`
	OrphanCount    int `json:"orphan_count"`
	PendingJournal int `json:"pending_journal"`
}

// Store is the full index-store contract consumed by the classifier,
// registration pipeline, and recovery subsystem (spec §4.1).
//
// All methods operate against whatever transaction is currently open via
// Begin; with no transaction open, writes autocommit. This mirrors the
// "explicit transaction control in autocommit mode" requirement of spec §4.1
// rather than Go's usual *sql.Tx-passed-as-a-value style, because several
// callers (the registration pipeline, the duplicate-conflict compensator)
// need to begin a transaction in one method and commit or roll it back in
// another.
type Store interface {
	// SchemaVersion returns the active schema version (MAX(version) in the
	// schema_version relation).
	SchemaVersion() int

	// Tier 1: size bloom.
	SizeExists(ctx context.Context, size int64) (bool, error)
	AddSize(ctx context.Context, size int64) error

	// Tier 2: fringe index.
	FringeLookup(ctx context.Context, digest [8]byte, size int64) (path string, ok bool, err error)
	// AddFringe inserts a new (digest, size) -> path row. inserted is false
	// (not an error) if the composite key already existed — conflict is a
	// classification signal, never an exception (Design Note 9).
	AddFringe(ctx context.Context, digest [8]byte, size int64, path string) (inserted bool, err error)

	// Tier 3: full index.
	FullLookup(ctx context.Context, digest [16]byte) (path string, ok bool, err error)
	// AddFull inserts a new digest -> (path, metadata) row. inserted is
	// false if the digest already existed.
	AddFull(ctx context.Context, digest [16]byte, path string, metadata *string) (inserted bool, err error)

	// Move journal.
	JournalMove(ctx context.Context, source, dest string, size int64) (id int64, err error)
	UpdateMovePhase(ctx context.Context, id int64, phase MovePhase) error
	GetIncompleteJournalEntries(ctx context.Context) ([]JournalEntry, error)
	PendingJournalCount(ctx context.Context) (int, error)

	// Orphan registry.
	AddOrphan(ctx context.Context, original, orphan string, size int64) (id int64, err error)
	UpdateOrphanStatus(ctx context.Context, id int64, status OrphanStatus) error
	GetPendingOrphans(ctx context.Context) ([]OrphanRecord, error)
	PendingOrphanCount(ctx context.Context) (int, error)
	OrphanCount(ctx context.Context) (int, error)

	// Stats reports index-wide counts, mirroring original_source's stats
	// property.
	Stats(ctx context.Context) (Stats, error)

	// Transaction control. Transactions are BEGIN IMMEDIATE (acquire the
	// write lock on begin); nesting is not supported.
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	// Close releases the underlying connection.
	Close() error
}
