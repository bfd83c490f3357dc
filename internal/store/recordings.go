package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"encore/internal/services"
)

// CreateRecording inserts rec, assigning an id and creation time when unset.
// A JobID naming a job that no longer exists is dropped.
func (s *Store) CreateRecording(ctx context.Context, rec Recording) (*Recording, error) {
	if rec.UserID == "" || rec.Filename == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "create recording", "user and filename are required", nil)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	// The job may be deleted while the recording is processed; the link is
	// resolved in the insert itself so a stale reference is stored as NULL.
	var jobID sql.NullString
	err := s.db.QueryRowContext(ctx,
		"INSERT INTO recordings ("+recordingColumns+") VALUES (?, ?, (SELECT id FROM jobs WHERE id = ?), ?, ?, ?, ?) RETURNING job_id",
		rec.ID, rec.UserID, nullableString(rec.JobID), rec.Title, rec.Filename, nullableFloat(rec.Duration), formatTime(rec.CreatedAt),
	).Scan(&jobID)
	if err != nil {
		return nil, fmt.Errorf("insert recording: %w", err)
	}
	rec.JobID = jobID.String
	return &rec, nil
}

// GetRecording fetches a recording by id.
func (s *Store) GetRecording(ctx context.Context, id string) (*Recording, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordingColumns+" FROM recordings WHERE id = ?", id)
	rec, err := scanRecording(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get recording", "recording "+id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get recording %s: %w", id, err)
	}
	return rec, nil
}

// ListRecordings returns a user's recordings, newest first.
func (s *Store) ListRecordings(ctx context.Context, userID string) ([]*Recording, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recordingColumns+" FROM recordings WHERE user_id = ? ORDER BY created_at DESC, rowid DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		rec, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// DeleteRecording removes a user's recording and returns the deleted row.
func (s *Store) DeleteRecording(ctx context.Context, userID, id string) (*Recording, error) {
	rec, err := s.GetRecording(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, services.Wrap(services.ErrNotFound, "store", "delete recording", "recording "+id, nil)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM recordings WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("delete recording: %w", err)
	}
	return rec, nil
}
