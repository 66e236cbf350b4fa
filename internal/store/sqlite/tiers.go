package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// SizeExists implements store.Store (Tier 1).
func (s *Store) SizeExists(ctx context.Context, size int64) (bool, error) {
	var one int
	err := s.conn().QueryRowContext(ctx,
		`SELECT 1 FROM size_entries WHERE file_size = ?`, size,
	).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("sqlite: size_exists(%d): %w", size, err)
	default:
		return true, nil
	}
}

// AddSize implements store.Store. Idempotent insert.
func (s *Store) AddSize(ctx context.Context, size int64) error {
	_, err := s.conn().ExecContext(ctx,
		`INSERT OR IGNORE INTO size_entries (file_size) VALUES (?)`, size,
	)
	if err != nil {
		return fmt.Errorf("sqlite: add_size(%d): %w", size, err)
	}
	return nil
}

// FringeLookup implements store.Store (Tier 2).
func (s *Store) FringeLookup(ctx context.Context, digest [8]byte, size int64) (string, bool, error) {
	var path string
	err := s.conn().QueryRowContext(ctx,
		`SELECT file_path FROM fringe_entries WHERE fringe_digest = ? AND file_size = ?`,
		digest[:], size,
	).Scan(&path)
	switch {
	case err == sql.ErrNoRows:
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("sqlite: fringe_lookup: %w", err)
	default:
		return path, true, nil
	}
}

// AddFringe implements store.Store. inserted is false — not an error — when
// the composite key already existed (Design Note 9): callers must read the
// return value, not an error, to detect the conflict.
func (s *Store) AddFringe(ctx context.Context, digest [8]byte, size int64, path string) (bool, error) {
	res, err := s.conn().ExecContext(ctx,
		`INSERT INTO fringe_entries (fringe_digest, file_size, file_path)
		 VALUES (?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		digest[:], size, path,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: add_fringe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: add_fringe rows affected: %w", err)
	}
	return n > 0, nil
}

// FullLookup implements store.Store (Tier 3).
func (s *Store) FullLookup(ctx context.Context, digest [16]byte) (string, bool, error) {
	var path string
	err := s.conn().QueryRowContext(ctx,
		`SELECT file_path FROM full_entries WHERE full_digest = ?`, digest[:],
	).Scan(&path)
	switch {
	case err == sql.ErrNoRows:
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("sqlite: full_lookup: %w", err)
	default:
		return path, true, nil
	}
}

// AddFull implements store.Store. inserted is false when the digest already
// existed — the sole signal, per spec §4.3, that a candidate is a confirmed
// duplicate at the absolute-trust tier.
func (s *Store) AddFull(ctx context.Context, digest [16]byte, path string, metadata *string) (bool, error) {
	res, err := s.conn().ExecContext(ctx,
		`INSERT INTO full_entries (full_digest, file_path, metadata)
		 VALUES (?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		digest[:], path, metadata,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: add_full: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: add_full rows affected: %w", err)
	}
	return n > 0, nil
}
