package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const jobColumns = "id, user_id, title, source_path, status, progress, instrumental_path, lyrics_json, error_message, created_at, updated_at"

const recordingColumns = "id, user_id, job_id, title, filename, duration, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		job          Job
		statusStr    string
		instrumental sql.NullString
		lyricsRaw    sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&job.ID,
		&job.UserID,
		&job.Title,
		&job.SourcePath,
		&statusStr,
		&job.Progress,
		&instrumental,
		&lyricsRaw,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	job.Status = Status(statusStr)
	job.InstrumentalPath = instrumental.String
	job.ErrorMessage = errorMessage.String
	if lyricsRaw.Valid && lyricsRaw.String != "" {
		if err := json.Unmarshal([]byte(lyricsRaw.String), &job.Lyrics); err != nil {
			return nil, err
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return &job, nil
}

func scanRecording(scanner rowScanner) (*Recording, error) {
	var (
		rec        Recording
		jobID      sql.NullString
		duration   sql.NullFloat64
		createdRaw string
	)
	if err := scanner.Scan(&rec.ID, &rec.UserID, &jobID, &rec.Title, &rec.Filename, &duration, &createdRaw); err != nil {
		return nil, err
	}
	rec.JobID = jobID.String
	if duration.Valid {
		d := duration.Float64
		rec.Duration = &d
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

// timeLayout is fixed width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}
