package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"encore/internal/config"
	"encore/internal/fileutil"
	"encore/internal/logging"
	"encore/internal/separation"
	"encore/internal/services"
	"encore/internal/services/demucs"
	"encore/internal/services/whisper"
	"encore/internal/store"
	"encore/internal/transcription"
)

const (
	stopMessage    = "daemon stopped"
	restartMessage = "daemon restarted"
)

// Separator produces an instrumental track under outputRoot.
type Separator interface {
	Run(ctx context.Context, source, outputRoot string, report func(int)) (string, error)
}

// Transcriber produces ordered lyric segments for a source file.
type Transcriber interface {
	Run(ctx context.Context, source string) ([]store.Segment, error)
}

// Orchestrator accepts submissions and runs each job to a terminal state.
type Orchestrator struct {
	cfg         *config.Config
	store       *store.Store
	separator   Separator
	transcriber Transcriber
	logger      *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithSeparator replaces the demucs-backed separation stage.
func WithSeparator(s Separator) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.separator = s
		}
	}
}

// WithTranscriber replaces the whisper-backed transcription stage.
func WithTranscriber(t Transcriber) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.transcriber = t
		}
	}
}

// New builds an orchestrator wired to the tools named in cfg.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		cfg:   cfg,
		store: st,
		separator: separation.New(
			demucs.New(cfg.Separation.Binary, cfg.Separation.Model),
			cfg.Separation.StemSuffix,
			logger,
		),
		transcriber: transcription.New(
			whisper.New(cfg.Transcription.Binary, whisper.Config{
				Model:    cfg.Transcription.Model,
				Language: cfg.Transcription.Language,
				Device:   cfg.Transcription.Device,
			}),
			"",
			logger,
		),
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		baseCtx: ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Submit stores the upload, creates the job, and starts its run. It returns as
// soon as the job row exists.
func (o *Orchestrator) Submit(ctx context.Context, user, filename string, r io.Reader) (string, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return "", services.Wrap(services.ErrValidation, "submit", "validate", "user is required", nil)
	}
	title := strings.TrimSpace(filepath.Base(strings.ReplaceAll(filename, "\\", "/")))
	if title == "" || title == "." || title == "/" {
		return "", services.Wrap(services.ErrValidation, "submit", "validate", "filename is required", nil)
	}

	name := fmt.Sprintf("%d_%s", time.Now().UnixNano(), fileutil.SanitizeFileName(title))
	source := filepath.Join(o.cfg.UploadsPath(fileutil.SanitizeToken(user)), name)
	if _, err := fileutil.SaveStream(r, source, o.cfg.MaxUploadBytes()); err != nil {
		return "", err
	}

	job, err := o.store.CreateJob(ctx, user, title, source)
	if err != nil {
		_ = fileutil.RemoveQuietly(source)
		return "", err
	}

	runCtx := o.baseCtx
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		runCtx = services.WithRequestID(runCtx, rid)
	}
	o.Go(runCtx, job.ID)

	logging.WithContext(services.WithJobID(ctx, job.ID), o.logger).Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String("title", title),
		logging.String("source", source),
	)
	return job.ID, nil
}

// Go runs jobID in a tracked goroutine.
func (o *Orchestrator) Go(ctx context.Context, jobID string) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.Run(ctx, jobID)
	}()
}

// Run drives one job from processing to ready or error. It returns without
// touching the job when it is already terminal.
func (o *Orchestrator) Run(ctx context.Context, jobID string) {
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, o.logger)

	defer func() {
		if r := recover(); r != nil {
			o.fail(ctx, logger, jobID, fmt.Errorf("panic: %v", r))
		}
	}()

	job, err := o.store.GetJob(context.WithoutCancel(ctx), jobID)
	if err != nil {
		logger.Error("job lookup failed", logging.Error(err))
		return
	}
	if job.Status != store.StatusProcessing {
		logger.Debug("job already terminal", logging.String("status", string(job.Status)))
		return
	}

	started := time.Now()
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("source", job.SourcePath),
	)

	report := func(percent int) {
		if _, err := o.store.UpdateProgress(ctx, jobID, percent); err != nil && ctx.Err() == nil {
			logger.Warn("progress update failed",
				logging.Int("progress", percent),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check database health"),
				logging.String(logging.FieldImpact, "job progress may lag until the next update"),
			)
		}
	}

	instrumental, err := o.separator.Run(ctx, job.SourcePath, o.cfg.InstrumentalsPath(), report)
	if err != nil {
		o.fail(ctx, logger, jobID, err)
		return
	}

	lyrics, err := o.transcriber.Run(ctx, job.SourcePath)
	if err != nil {
		o.fail(ctx, logger, jobID, err)
		return
	}

	if err := o.store.CompleteJob(context.WithoutCancel(ctx), jobID, instrumental, lyrics); err != nil {
		o.fail(ctx, logger, jobID, err)
		return
	}
	logger.Info("job ready",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("instrumental", instrumental),
		logging.Int("segments", len(lyrics)),
		logging.Duration("elapsed", time.Since(started)),
	)
}

func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, jobID string, cause error) {
	message := services.Details(cause).Message
	if errors.Is(ctx.Err(), context.Canceled) {
		message = stopMessage
	}
	logging.ErrorWithContext(logger, "job failed", "job_failure",
		logging.String("kind", services.Details(cause).Kind),
		logging.String("error_message", message),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "inspect the tool output logged at debug level"),
	)
	if err := o.store.FailJob(context.WithoutCancel(ctx), jobID, message); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
}

// RecoverStale fails jobs a previous process left in processing.
func (o *Orchestrator) RecoverStale(ctx context.Context) (int64, error) {
	n, err := o.store.FailStaleJobs(ctx, restartMessage)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		o.logger.Warn("stale jobs marked failed",
			logging.Int64("count", n),
			logging.String(logging.FieldErrorHint, "resubmit the affected uploads"),
			logging.String(logging.FieldImpact, "jobs interrupted by a restart will not finish"),
		)
	}
	return n, nil
}

// Wait blocks until every in-flight run has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown cancels in-flight runs and waits for them until ctx expires.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.cancel()
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
