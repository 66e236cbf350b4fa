// Package migrations holds the ordered, idempotent schema migrations applied
// by sqlite.Store on open, mirroring the teacher's
// internal/storage/sqlite/migrations package: one function per migration,
// each safe to run against a database that already has the change applied.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

// AddFullMetadataColumn ensures full_entries.metadata exists. Schema v1
// already creates the column (schema.go), so on a fresh database this is a
// no-op; it exists to demonstrate the migration mechanism and to carry
// forward any v0 database created before the metadata column existed
// (mirrors original_source/src/bgate_unix/db.py's v3->v4 migration).
func AddFullMetadataColumn(ctx context.Context, db *sql.DB) error {
	var name string
	err := db.QueryRowContext(ctx,
		`SELECT name FROM pragma_table_info('full_entries') WHERE name = 'metadata'`,
	).Scan(&name)
	switch {
	case err == sql.ErrNoRows:
		_, err := db.ExecContext(ctx, `ALTER TABLE full_entries ADD COLUMN metadata TEXT`)
		if err != nil {
			return fmt.Errorf("add metadata column: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("checking for metadata column: %w", err)
	default:
		return nil
	}
}
