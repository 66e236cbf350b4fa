package sqlite

import (
	"database/sql"
	"context"
	"fmt"
	"time"

	"github.com/mr3od/bgate/internal/store"
)

// AddOrphan implements store.Store, recording a file quarantined by the
// duplicate-conflict compensator (spec §4.5) for later operator review.
func (s *Store) AddOrphan(ctx context.Context, original, orphan string, size int64) (int64, error) {
	res, err := s.conn().ExecContext(ctx,
		`INSERT INTO orphan_registry (original_path, orphan_path, file_size, created_at, status)
		 VALUES (?, ?, ?, ?, ?)`,
		original, orphan, size, time.Now().UTC().Format(timeLayout), string(store.OrphanPending),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: add_orphan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: add_orphan last insert id: %w", err)
	}
	return id, nil
}

// UpdateOrphanStatus implements store.Store.
func (s *Store) UpdateOrphanStatus(ctx context.Context, id int64, status store.OrphanStatus) error {
	var recoveredAt any
	if status == store.OrphanRecovered {
		recoveredAt = time.Now().UTC().Format(timeLayout)
	}
	_, err := s.conn().ExecContext(ctx,
		`UPDATE orphan_registry SET status = ?, recovered_at = COALESCE(?, recovered_at) WHERE id = ?`,
		string(status), recoveredAt, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update_orphan_status(%d, %s): %w", id, status, err)
	}
	return nil
}

// GetPendingOrphans implements store.Store.
func (s *Store) GetPendingOrphans(ctx context.Context) ([]store.OrphanRecord, error) {
	rows, err := s.conn().QueryContext(ctx,
		`SELECT id, original_path, orphan_path, file_size, created_at, recovered_at, status
		 FROM orphan_registry
		 WHERE status = ?
		 ORDER BY id`,
		string(store.OrphanPending),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get_pending_orphans: %w", err)
	}
	defer rows.Close()

	var out []store.OrphanRecord
	for rows.Next() {
		rec, err := scanOrphanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PendingOrphanCount implements store.Store.
func (s *Store) PendingOrphanCount(ctx context.Context) (int, error) {
	var n int
	err := s.conn().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orphan_registry WHERE status = ?`, string(store.OrphanPending),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: pending_orphan_count: %w", err)
	}
	return n, nil
}

// OrphanCount implements store.Store: the total orphan_registry row count,
// regardless of status.
func (s *Store) OrphanCount(ctx context.Context) (int, error) {
	var n int
	err := s.conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM orphan_registry`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: orphan_count: %w", err)
	}
	return n, nil
}

func scanOrphanRecord(r rowScanner) (store.OrphanRecord, error) {
	var (
		rec         store.OrphanRecord
		createdAt   string
		recoveredAt sql.NullString
		status      string
	)
	if err := r.Scan(&rec.ID, &rec.OriginalPath, &rec.OrphanPath, &rec.FileSize, &createdAt, &recoveredAt, &status); err != nil {
		return store.OrphanRecord{}, fmt.Errorf("sqlite: scanning orphan record: %w", err)
	}
	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return store.OrphanRecord{}, fmt.Errorf("sqlite: parsing orphan created_at: %w", err)
	}
	rec.CreatedAt = ts
	rec.Status = store.OrphanStatus(status)
	if recoveredAt.Valid {
		t, err := time.Parse(timeLayout, recoveredAt.String)
		if err != nil {
			return store.OrphanRecord{}, fmt.Errorf("sqlite: parsing orphan recovered_at: %w", err)
		}
		rec.RecoveredAt = &t
	}
	return rec, nil
}
