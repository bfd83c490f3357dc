package recording

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"time"

	"encore/internal/config"
	"encore/internal/logging"
	"encore/internal/services"
)

// View is the listing representation of a recording.
type View struct {
	ID        string
	Title     string
	Filename  string
	Ref       string
	JobID     string
	Duration  *float64
	CreatedAt time.Time
}

// Recordings lists a user's recordings newest first.
func (p *Pipeline) Recordings(ctx context.Context, user string) ([]View, error) {
	recs, err := p.store.ListRecordings(ctx, user)
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(recs))
	for _, rec := range recs {
		views = append(views, View{
			ID:        rec.ID,
			Title:     rec.Title,
			Filename:  rec.Filename,
			Ref:       path.Join(config.RecordingsDir, rec.Filename),
			JobID:     rec.JobID,
			Duration:  rec.Duration,
			CreatedAt: rec.CreatedAt,
		})
	}
	return views, nil
}

// DeleteRecording removes a user's recording and, best effort, its artifact.
func (p *Pipeline) DeleteRecording(ctx context.Context, user, id string) error {
	rec, err := p.store.DeleteRecording(ctx, user, id)
	if err != nil {
		return err
	}
	target := filepath.Join(p.cfg.RecordingsPath(), filepath.Base(rec.Filename))
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		logging.WarnWithContext(logging.WithContext(services.WithRecordingID(ctx, id), p.logger),
			"recording file cleanup failed", "recording_cleanup",
			logging.String("path", target),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the file manually"),
		)
	}
	return nil
}
