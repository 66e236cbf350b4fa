package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mr3od/bgate/internal/store/sqlite/migrations"
)

// migration pairs a name (for logging) with the function that applies it.
type migration struct {
	version int
	name    string
	fn      func(ctx context.Context, db *sql.DB) error
}

// migrationsList is the ordered list of migrations run to bring a database
// from its current version up to CurrentSchemaVersion, mirroring the
// teacher's migrationsList idiom (internal/storage/sqlite/migrations.go).
var migrationsList = []migration{
	{version: 1, name: "full_metadata_column", fn: migrations.AddFullMetadataColumn},
}

// migrate runs every migration with version > from, in order, and appends a
// schema_version row for each applied version.
func (s *Store) migrate(ctx context.Context, from int) error {
	for _, m := range migrationsList {
		if m.version <= from {
			continue
		}
		if err := m.fn(ctx, s.db); err != nil {
			return fmt.Errorf("migration %q: %w", m.name, err)
		}
		if err := s.stampVersion(ctx, m.version); err != nil {
			return fmt.Errorf("migration %q: stamping version: %w", m.name, err)
		}
	}
	return nil
}
