package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"encore/internal/fileutil"
	"encore/internal/locate"
	"encore/internal/logging"
	"encore/internal/separation"
	"encore/internal/services"
	"encore/internal/store"
)

// JobView is the polling representation of a job.
type JobView struct {
	ID              string
	Title           string
	Status          store.Status
	Progress        int
	InstrumentalRef string
	Lyrics          []store.Segment
	Error           string
	CreatedAt       time.Time
}

func (o *Orchestrator) view(job *store.Job) JobView {
	v := JobView{
		ID:        job.ID,
		Title:     job.Title,
		Status:    job.Status,
		Progress:  job.Progress,
		Error:     job.ErrorMessage,
		CreatedAt: job.CreatedAt,
	}
	if job.Status == store.StatusReady {
		if ref, err := locate.Reference(o.cfg.Paths.StorageRoot, job.InstrumentalPath); err == nil {
			v.InstrumentalRef = ref
		}
		v.Lyrics = job.Lyrics
		if v.Lyrics == nil {
			v.Lyrics = []store.Segment{}
		}
	}
	return v
}

// Jobs lists a user's jobs newest first.
func (o *Orchestrator) Jobs(ctx context.Context, user string) ([]JobView, error) {
	jobs, err := o.store.ListJobs(ctx, user)
	if err != nil {
		return nil, err
	}
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, o.view(job))
	}
	return views, nil
}

// Job returns one of the user's jobs.
func (o *Orchestrator) Job(ctx context.Context, user, id string) (JobView, error) {
	job, err := o.owned(ctx, user, id)
	if err != nil {
		return JobView{}, err
	}
	return o.view(job), nil
}

// InstrumentalFile returns the instrumental path of a ready job while the file
// still exists.
func (o *Orchestrator) InstrumentalFile(ctx context.Context, user, id string) (string, error) {
	job, err := o.owned(ctx, user, id)
	if err != nil {
		return "", err
	}
	if job.Status != store.StatusReady || !fileutil.Exists(job.InstrumentalPath) {
		return "", services.Wrap(services.ErrNotFound, "pipeline", "instrumental", "no instrumental for job "+id, nil)
	}
	return job.InstrumentalPath, nil
}

// DeleteJob removes a terminal job and, best effort, its upload and
// separation output.
func (o *Orchestrator) DeleteJob(ctx context.Context, user, id string) error {
	job, err := o.store.DeleteJob(ctx, user, id)
	if err != nil {
		return err
	}
	logger := logging.WithContext(services.WithJobID(ctx, id), o.logger)

	targets := []string{job.SourcePath}
	if dir := o.separationDir(job); dir != "" {
		targets = append(targets, dir)
	}
	for _, target := range targets {
		if err := os.RemoveAll(target); err != nil {
			logger.Warn("job file cleanup failed",
				logging.String("path", target),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the path manually"),
				logging.String(logging.FieldImpact, "disk space is not reclaimed"),
			)
		}
	}
	logger.Info("job deleted", logging.String(logging.FieldEventType, "job_deleted"))
	return nil
}

// separationDir returns the per-source folder demucs wrote, only when it lies
// inside the instrumentals root.
func (o *Orchestrator) separationDir(job *store.Job) string {
	root := o.cfg.InstrumentalsPath()
	dir := locate.Dir(root, o.cfg.Separation.Model, separation.Stem(job.SourcePath))
	if job.InstrumentalPath != "" {
		dir = filepath.Dir(job.InstrumentalPath)
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return dir
}

func (o *Orchestrator) owned(ctx context.Context, user, id string) (*store.Job, error) {
	job, err := o.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.UserID != user {
		return nil, services.Wrap(services.ErrNotFound, "pipeline", "lookup", "job "+id, nil)
	}
	return job, nil
}
