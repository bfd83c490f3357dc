package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"encore/internal/services"
)

// CreateJob inserts a processing job with progress 0.
func (s *Store) CreateJob(ctx context.Context, userID, title, sourcePath string) (*Job, error) {
	if userID == "" || sourcePath == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "create job", "user and source path are required", nil)
	}
	now := time.Now().UTC()
	job := &Job{
		ID:         uuid.NewString(),
		UserID:     userID,
		Title:      title,
		SourcePath: sourcePath,
		Status:     StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, user_id, title, source_path, status, progress, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		job.ID, job.UserID, job.Title, job.SourcePath, job.Status, formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// GetJob fetches a job by id. A missing job yields services.ErrNotFound.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get job", "job "+id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// ListJobs returns a user's jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, userID string) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE user_id = ? ORDER BY created_at DESC, rowid DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateProgress raises a processing job's progress to percent. It reports
// false without error when the value is not strictly higher or the job is
// terminal.
func (s *Store) UpdateProgress(ctx context.Context, id string, percent int) (bool, error) {
	percent = max(0, min(percent, 100))
	unlock := s.locks.Lock(id)
	defer unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET progress = ?, updated_at = ?
         WHERE id = ? AND status = ? AND progress < ?`,
		percent, formatTime(time.Now()), id, StatusProcessing, percent,
	)
	if err != nil {
		return false, fmt.Errorf("update progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update progress rows: %w", err)
	}
	return n > 0, nil
}

// CompleteJob moves a processing job to ready with its instrumental path and
// lyrics in one statement.
func (s *Store) CompleteJob(ctx context.Context, id, instrumentalPath string, lyrics []Segment) error {
	if instrumentalPath == "" {
		return services.Wrap(services.ErrValidation, "store", "complete job", "instrumental path is required", nil)
	}
	if lyrics == nil {
		lyrics = []Segment{}
	}
	payload, err := json.Marshal(lyrics)
	if err != nil {
		return fmt.Errorf("marshal lyrics: %w", err)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, progress = 100, instrumental_path = ?, lyrics_json = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusReady, instrumentalPath, string(payload), formatTime(time.Now()), id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return s.expectTransition(ctx, res, id, "complete job")
}

// FailJob moves a processing job to error, leaving progress as observed.
func (s *Store) FailJob(ctx context.Context, id, message string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusError, nullableString(message), formatTime(time.Now()), id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return s.expectTransition(ctx, res, id, "fail job")
}

func (s *Store) expectTransition(ctx context.Context, res sql.Result, id, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if n > 0 {
		return nil
	}
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	return services.Wrap(services.ErrValidation, "store", op, fmt.Sprintf("job %s is already %s", id, job.Status), nil)
}

// DeleteJob removes a user's terminal job and returns the deleted row so the
// caller can clean up files. Processing jobs are refused with ErrValidation.
func (s *Store) DeleteJob(ctx context.Context, userID, id string) (*Job, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.UserID != userID {
		return nil, services.Wrap(services.ErrNotFound, "store", "delete job", "job "+id, nil)
	}
	if !job.Status.Terminal() {
		return nil, services.Wrap(services.ErrValidation, "store", "delete job", "job is still processing", nil)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("delete job: %w", err)
	}
	return job, nil
}

// FailStaleJobs moves every processing job to error. It runs at daemon start
// when no run can still own those jobs.
func (s *Store) FailStaleJobs(ctx context.Context, message string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ? WHERE status = ?`,
		StatusError, nullableString(message), formatTime(time.Now()), StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// CountJobs returns job counts keyed by status.
func (s *Store) CountJobs(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM jobs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := map[Status]int{StatusProcessing: 0, StatusReady: 0, StatusError: 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}
