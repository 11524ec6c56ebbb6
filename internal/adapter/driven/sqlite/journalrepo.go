package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/sheetbridge/internal/domain/model"
	"github.com/ericfisherdev/sheetbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SubmissionJournal = (*JournalRepo)(nil)

// JournalRepo is the SQLite implementation of the SubmissionJournal port
// interface.
type JournalRepo struct {
	db *DB
}

// NewJournalRepo creates a new JournalRepo backed by the given DB.
func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// RecordBatch inserts all entries of one batch in a single transaction.
// Entries without a CreatedAt are stamped with the current time.
func (r *JournalRepo) RecordBatch(ctx context.Context, entries []model.SubmissionEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	const insertQuery = `
		INSERT INTO submissions (batch_id, record_key, actor, count_date, shift, item_code, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	for _, entry := range entries {
		createdAt := entry.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		if _, err := tx.ExecContext(ctx, insertQuery,
			entry.BatchID, entry.Key, entry.Actor, entry.Date, entry.Shift,
			entry.ItemCode, string(entry.Outcome), entry.Detail, createdAt.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("insert submission %s/%s: %w", entry.BatchID, entry.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch %s: %w", entries[0].BatchID, err)
	}

	return nil
}

// ListRecent returns up to limit entries, newest first.
func (r *JournalRepo) ListRecent(ctx context.Context, limit int) ([]model.SubmissionEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, batch_id, record_key, actor, count_date, shift, item_code, outcome, detail, created_at
		FROM submissions
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var entries []model.SubmissionEntry
	for rows.Next() {
		entry, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}

	return entries, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(s scanner) (*model.SubmissionEntry, error) {
	var entry model.SubmissionEntry
	var outcome, createdAt string

	err := s.Scan(
		&entry.ID, &entry.BatchID, &entry.Key, &entry.Actor, &entry.Date,
		&entry.Shift, &entry.ItemCode, &outcome, &entry.Detail, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Outcome = model.SubmissionOutcome(outcome)

	entry.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &entry, nil
}

// parseTime tries the datetime formats SQLite hands back depending on how
// the value was bound.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
