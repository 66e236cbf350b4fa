package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mr3od/bgate/internal/store"
)

const timeLayout = time.RFC3339Nano

// JournalMove implements store.Store. It writes the write-ahead record a
// durable move consults on crash recovery (spec §4.6) before any filesystem
// mutation happens.
func (s *Store) JournalMove(ctx context.Context, source, dest string, size int64) (int64, error) {
	res, err := s.conn().ExecContext(ctx,
		`INSERT INTO move_journal (source_path, dest_path, file_size, created_at, phase)
		 VALUES (?, ?, ?, ?, ?)`,
		source, dest, size, time.Now().UTC().Format(timeLayout), string(store.PhasePlanned),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: journal_move: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite: journal_move last insert id: %w", err)
	}
	return id, nil
}

// UpdateMovePhase implements store.Store.
func (s *Store) UpdateMovePhase(ctx context.Context, id int64, phase store.MovePhase) error {
	var completedAt any
	if phase == store.PhaseCompleted || phase == store.PhaseFailed {
		completedAt = time.Now().UTC().Format(timeLayout)
	}
	_, err := s.conn().ExecContext(ctx,
		`UPDATE move_journal SET phase = ?, completed_at = COALESCE(?, completed_at) WHERE id = ?`,
		string(phase), completedAt, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update_move_phase(%d, %s): %w", id, phase, err)
	}
	return nil
}

// GetIncompleteJournalEntries implements store.Store: every entry not in a
// terminal phase, the recovery subsystem's reconciliation set (spec §4.7).
func (s *Store) GetIncompleteJournalEntries(ctx context.Context) ([]store.JournalEntry, error) {
	rows, err := s.conn().QueryContext(ctx,
		`SELECT id, source_path, dest_path, file_size, created_at, phase, completed_at
		 FROM move_journal
		 WHERE phase NOT IN (?, ?)
		 ORDER BY id`,
		string(store.PhaseCompleted), string(store.PhaseFailed),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get_incomplete_journal_entries: %w", err)
	}
	defer rows.Close()

	var out []store.JournalEntry
	for rows.Next() {
		e, err := scanJournalEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PendingJournalCount implements store.Store.
func (s *Store) PendingJournalCount(ctx context.Context) (int, error) {
	var n int
	err := s.conn().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM move_journal WHERE phase NOT IN (?, ?)`,
		string(store.PhaseCompleted), string(store.PhaseFailed),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: pending_journal_count: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJournalEntry(r rowScanner) (store.JournalEntry, error) {
	var (
		e           store.JournalEntry
		createdAt   string
		phase       string
		completedAt sql.NullString
	)
	if err := r.Scan(&e.ID, &e.SourcePath, &e.DestPath, &e.FileSize, &createdAt, &phase, &completedAt); err != nil {
		return store.JournalEntry{}, fmt.Errorf("sqlite: scanning journal entry: %w", err)
	}
	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return store.JournalEntry{}, fmt.Errorf("sqlite: parsing journal created_at: %w", err)
	}
	e.CreatedAt = ts
	e.Phase = store.MovePhase(phase)
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return store.JournalEntry{}, fmt.Errorf("sqlite: parsing journal completed_at: %w", err)
		}
		e.CompletedAt = &t
	}
	return e, nil
}
