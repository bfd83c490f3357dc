package recording

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"encore/internal/config"
	"encore/internal/fileutil"
	"encore/internal/logging"
	"encore/internal/media/ffprobe"
	"encore/internal/services"
	"encore/internal/services/ffmpeg"
	"encore/internal/store"
)

// Stage names the last step that produced the final artifact.
type Stage string

const (
	StageOriginal Stage = "original"
	StageDenoised Stage = "denoised"
	StageMixed    Stage = "mixed"
)

// Result is the outcome of one Process call.
type Result struct {
	Final string
	Stage Stage
}

// Mixer performs the denoise and mix steps.
type Mixer interface {
	Denoise(ctx context.Context, input, output string) error
	Mix(ctx context.Context, instrumental, vocal, output string) error
}

// Pipeline processes and persists recordings.
type Pipeline struct {
	cfg    *config.Config
	store  *store.Store
	mixer  Mixer
	probe  func(ctx context.Context, path string) (float64, bool)
	now    func() time.Time
	logger *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithMixer replaces the ffmpeg-backed mixer.
func WithMixer(m Mixer) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.mixer = m
		}
	}
}

// WithClock overrides the time source used for file names and titles.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New builds a pipeline wired to the ffmpeg and ffprobe binaries in cfg.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		cfg:   cfg,
		store: st,
		mixer: ffmpeg.New(cfg.FFmpeg.Binary, cfg.FFmpeg.DenoiseFilter, cfg.FFmpeg.MixFilter, logger),
		probe: func(ctx context.Context, path string) (float64, bool) {
			return ffprobe.Duration(ctx, cfg.FFmpeg.FFprobeBinary, path)
		},
		now:     time.Now,
		logger:  logging.NewComponentLogger(logger, "recording"),
		baseCtx: ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process denoises capture and, when jobRef names a ready job whose
// instrumental still exists, mixes the vocal over it. It never fails: each
// step that does not produce output leaves the previous artifact as final.
func (p *Pipeline) Process(ctx context.Context, capture, jobRef string) Result {
	logger := logging.WithContext(ctx, p.logger)
	dir := filepath.Dir(capture)
	base := filepath.Base(capture)
	result := Result{Final: capture, Stage: StageOriginal}

	denoised := filepath.Join(dir, "denoised_"+base)
	if err := p.mixer.Denoise(ctx, capture, denoised); err != nil {
		_ = fileutil.RemoveQuietly(denoised)
		logging.WarnWithContext(logger, "denoise failed; keeping original capture", "denoise_fallback",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the ffmpeg denoise filter"),
			logging.String(logging.FieldImpact, "recording is saved without noise reduction"),
		)
	} else {
		result = Result{Final: denoised, Stage: StageDenoised}
	}

	instrumental := p.instrumental(ctx, jobRef)
	if instrumental == "" {
		return result
	}
	mixed := filepath.Join(dir, "mixed_"+strings.TrimSuffix(base, filepath.Ext(base))+".mp3")
	if err := p.mixer.Mix(ctx, instrumental, result.Final, mixed); err != nil {
		_ = fileutil.RemoveQuietly(mixed)
		logging.WarnWithContext(logger, "mix failed; keeping vocal only", "mix_fallback",
			logging.String("working", result.Final),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the ffmpeg mix filter and the instrumental file"),
			logging.String(logging.FieldImpact, "recording is saved without accompaniment"),
		)
		return result
	}
	return Result{Final: mixed, Stage: StageMixed}
}

// Submit saves the raw capture and processes it in the background. Saving is
// the only step whose failure is returned.
func (p *Pipeline) Submit(ctx context.Context, user, jobRef string, r io.Reader) (string, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return "", services.Wrap(services.ErrValidation, "recording", "validate", "user is required", nil)
	}
	now := p.now()
	raw := filepath.Join(p.cfg.RecordingsPath(), fmt.Sprintf("rec_%s_%d.webm", fileutil.SanitizeToken(user), now.UnixNano()))
	if _, err := fileutil.SaveStream(r, raw, p.cfg.MaxUploadBytes()); err != nil {
		return "", err
	}

	id := uuid.NewString()
	runCtx := services.WithRecordingID(p.baseCtx, id)
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		runCtx = services.WithRequestID(runCtx, rid)
	}
	logging.WithContext(runCtx, p.logger).Info("recording received",
		logging.String(logging.FieldEventType, "recording_submitted"),
		logging.String("capture", raw),
		logging.String("job_ref", jobRef),
	)

	jobID := p.ownedJob(ctx, user, jobRef)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(runCtx, id, user, jobID, raw, now)
	}()
	return id, nil
}

func (p *Pipeline) run(ctx context.Context, id, user, jobID, raw string, now time.Time) {
	logger := logging.WithContext(ctx, p.logger)
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "recording processing panicked", "recording_failure",
				logging.String("capture", raw),
				logging.Any("panic", r),
				logging.String(logging.FieldErrorHint, "the raw capture remains on disk"),
			)
		}
	}()

	result := p.Process(ctx, raw, jobID)

	if !fileutil.Exists(result.Final) {
		logging.ErrorWithContext(logger, "recording artifact missing", "recording_failure",
			logging.String("final", result.Final),
			logging.String(logging.FieldErrorHint, "check free space in the recordings directory"),
		)
		return
	}

	rec := store.Recording{
		ID:        id,
		UserID:    user,
		JobID:     jobID,
		Title:     "Recording " + now.Format("2006-01-02 15:04"),
		Filename:  filepath.Base(result.Final),
		CreatedAt: now.UTC(),
	}
	if seconds, ok := p.probe(ctx, result.Final); ok {
		rec.Duration = &seconds
	}
	if _, err := p.store.CreateRecording(context.WithoutCancel(ctx), rec); err != nil {
		logging.ErrorWithContext(logger, "recording persist failed", "recording_failure",
			logging.String("final", result.Final),
			logging.Error(err),
		)
		return
	}
	logger.Info("recording saved",
		logging.String(logging.FieldEventType, "recording_complete"),
		logging.String("final_stage", string(result.Stage)),
		logging.String("filename", rec.Filename),
	)
}

// ownedJob returns jobRef when it names one of user's jobs, and "" otherwise.
func (p *Pipeline) ownedJob(ctx context.Context, user, jobRef string) string {
	jobRef = strings.TrimSpace(jobRef)
	if jobRef == "" {
		return ""
	}
	job, err := p.store.GetJob(ctx, jobRef)
	if err != nil || job.UserID != user {
		return ""
	}
	return job.ID
}

// instrumental returns the accompaniment path for jobRef, or "" when the job
// is missing, not ready, or its file is gone.
func (p *Pipeline) instrumental(ctx context.Context, jobRef string) string {
	if jobRef == "" {
		return ""
	}
	job, err := p.store.GetJob(context.WithoutCancel(ctx), jobRef)
	if err != nil || job.Status != store.StatusReady || !fileutil.Exists(job.InstrumentalPath) {
		return ""
	}
	return job.InstrumentalPath
}

// Wait blocks until every in-flight recording has been processed.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Shutdown cancels in-flight processing and waits until ctx expires.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.cancel()
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
