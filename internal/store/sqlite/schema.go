package sqlite

// schemaDDL creates the five relations of spec §3 plus schema_version.
// Every CREATE is IF NOT EXISTS so init can run unconditionally against an
// existing database, matching the teacher's internal/storage/sqlite/schema.go
// idiom of a single idempotent DDL block applied on every open.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS size_entries (
    file_size INTEGER PRIMARY KEY
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS fringe_entries (
    fringe_digest BLOB NOT NULL,
    file_size     INTEGER NOT NULL,
    file_path     TEXT NOT NULL,
    PRIMARY KEY (fringe_digest, file_size)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS full_entries (
    full_digest BLOB PRIMARY KEY,
    file_path   TEXT NOT NULL,
    metadata    TEXT
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS orphan_registry (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    original_path TEXT NOT NULL,
    orphan_path   TEXT NOT NULL UNIQUE,
    file_size     INTEGER NOT NULL,
    created_at    TEXT NOT NULL,
    recovered_at  TEXT,
    status        TEXT NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'recovered', 'failed'))
);

CREATE INDEX IF NOT EXISTS idx_orphan_registry_status ON orphan_registry(status);

CREATE TABLE IF NOT EXISTS move_journal (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    source_path  TEXT NOT NULL,
    dest_path    TEXT NOT NULL,
    file_size    INTEGER NOT NULL,
    created_at   TEXT NOT NULL,
    phase        TEXT NOT NULL DEFAULT 'planned'
        CHECK (phase IN ('planned', 'moving', 'completed', 'failed')),
    completed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_move_journal_phase ON move_journal(phase);

CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`
