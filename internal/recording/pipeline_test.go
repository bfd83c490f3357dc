package recording_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"encore/internal/config"
	"encore/internal/logging"
	"encore/internal/recording"
	"encore/internal/services"
	"encore/internal/store"
	"encore/internal/testsupport"
)

const probeJSON = `cat <<'JSON'
{"streams": [{"index": 0, "codec_type": "audio"}], "format": {"duration": "12.5", "size": "2048"}}
JSON
`

func newPipeline(t *testing.T, opts ...testsupport.ConfigOption) (*recording.Pipeline, *store.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	st := testsupport.MustOpenStore(t, cfg)
	return recording.New(cfg, st, logging.NewNop()), st, cfg
}

func writeCapture(t *testing.T, cfg *config.Config) string {
	t.Helper()
	capture := filepath.Join(cfg.RecordingsPath(), "rec_alice_1.webm")
	testsupport.WriteFile(t, capture, 64)
	return capture
}

// readyJob creates a ready job whose instrumental lives under the storage root.
func readyJob(t *testing.T, st *store.Store, cfg *config.Config, user string) *store.Job {
	t.Helper()
	ctx := context.Background()
	job, err := st.CreateJob(ctx, user, "song.wav", filepath.Join(cfg.UploadsPath(user), "song.wav"))
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	instrumental := filepath.Join(cfg.InstrumentalsPath(), "htdemucs", "song", "no_vocals.wav")
	testsupport.WriteFile(t, instrumental, 128)
	if err := st.CompleteJob(ctx, job.ID, instrumental, []store.Segment{{Start: 0, End: 1, Text: "la"}}); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	job, err = st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	return job
}

func TestProcessFallbackChain(t *testing.T) {
	tests := []struct {
		name      string
		fail      string
		withJob   bool
		wantStage recording.Stage
		wantName  string
	}{
		{"no job reference denoises only", "", false, recording.StageDenoised, "denoised_rec_alice_1.webm"},
		{"denoise failure keeps original", "afftdn", false, recording.StageOriginal, "rec_alice_1.webm"},
		{"ready job mixes", "", true, recording.StageMixed, "mixed_rec_alice_1.mp3"},
		{"mix failure keeps denoised", "amix", true, recording.StageDenoised, "denoised_rec_alice_1.webm"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, st, cfg := newPipeline(t, testsupport.WithFFmpegScript(testsupport.FFmpegScript(tc.fail)))
			capture := writeCapture(t, cfg)
			jobRef := ""
			if tc.withJob {
				jobRef = readyJob(t, st, cfg, "alice").ID
			}

			result := p.Process(context.Background(), capture, jobRef)
			if result.Stage != tc.wantStage {
				t.Fatalf("stage = %s, want %s", result.Stage, tc.wantStage)
			}
			if filepath.Base(result.Final) != tc.wantName {
				t.Fatalf("final = %s, want %s", result.Final, tc.wantName)
			}
			if _, err := os.Stat(result.Final); err != nil {
				t.Fatalf("final artifact missing: %v", err)
			}
			if _, err := os.Stat(capture); err != nil {
				t.Fatalf("original capture must survive: %v", err)
			}
		})
	}
}

type countingMixer struct {
	denoise int
	mix     int
}

func (m *countingMixer) Denoise(_ context.Context, input, output string) error {
	m.denoise++
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	return os.WriteFile(output, data, 0o644)
}

func (m *countingMixer) Mix(context.Context, string, string, string) error {
	m.mix++
	return errors.New("unexpected mix")
}

func TestProcessSkipsMixWhenInstrumentalMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	mixer := &countingMixer{}
	p := recording.New(cfg, st, logging.NewNop(), recording.WithMixer(mixer))

	job := readyJob(t, st, cfg, "alice")
	if err := os.Remove(job.InstrumentalPath); err != nil {
		t.Fatalf("remove instrumental: %v", err)
	}
	processing, err := st.CreateJob(context.Background(), "alice", "b.wav", "/tmp/b.wav")
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	for _, ref := range []string{job.ID, processing.ID, "no-such-job"} {
		result := p.Process(context.Background(), writeCapture(t, cfg), ref)
		if result.Stage != recording.StageDenoised {
			t.Fatalf("ref %s: stage = %s, want denoised", ref, result.Stage)
		}
	}
	if mixer.mix != 0 {
		t.Fatalf("mix should be skipped, got %d calls", mixer.mix)
	}
	if mixer.denoise != 3 {
		t.Fatalf("denoise should always run, got %d calls", mixer.denoise)
	}
}

func TestSubmitPersistsRecording(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithFFmpegScript(testsupport.FFmpegScript("")),
		testsupport.WithFFprobeScript(probeJSON),
	)
	st := testsupport.MustOpenStore(t, cfg)
	clock := time.Date(2026, 3, 14, 9, 26, 0, 0, time.Local)
	p := recording.New(cfg, st, logging.NewNop(), recording.WithClock(func() time.Time { return clock }))
	job := readyJob(t, st, cfg, "alice")

	id, err := p.Submit(context.Background(), "alice", job.ID, strings.NewReader("vocal-take"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	p.Wait()

	views, err := p.Recordings(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Recordings: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 recording, got %d", len(views))
	}
	v := views[0]
	if v.ID != id || v.JobID != job.ID {
		t.Fatalf("unexpected identity %+v", v)
	}
	if !strings.HasPrefix(v.Filename, "mixed_rec_alice_") || !strings.HasSuffix(v.Filename, ".mp3") {
		t.Fatalf("unexpected filename %q", v.Filename)
	}
	if v.Ref != "recordings/"+v.Filename {
		t.Fatalf("unexpected ref %q", v.Ref)
	}
	if v.Title != "Recording 2026-03-14 09:26" {
		t.Fatalf("unexpected title %q", v.Title)
	}
	if v.Duration == nil || *v.Duration != 12.5 {
		t.Fatalf("unexpected duration %v", v.Duration)
	}
}

func TestSubmitKeepsCaptureWhenToolsMissing(t *testing.T) {
	p, st, cfg := newPipeline(t, testsupport.WithMissingBinaries())
	foreign := readyJob(t, st, cfg, "bob")

	if _, err := p.Submit(context.Background(), "alice", foreign.ID, strings.NewReader("take")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	p.Wait()

	views, err := p.Recordings(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Recordings: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 recording, got %d", len(views))
	}
	if !strings.HasPrefix(views[0].Filename, "rec_alice_") || views[0].JobID != "" || views[0].Duration != nil {
		t.Fatalf("expected raw capture without job or duration, got %+v", views[0])
	}
	if _, err := os.Stat(filepath.Join(cfg.RecordingsPath(), views[0].Filename)); err != nil {
		t.Fatalf("raw capture missing: %v", err)
	}
}

func TestSubmitRejectsOversizedCapture(t *testing.T) {
	p, st, _ := newPipeline(t, testsupport.WithMaxUploadMB(1))
	_, err := p.Submit(context.Background(), "alice", "", strings.NewReader(strings.Repeat("x", (1<<20)+1)))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	recs, err := st.ListRecordings(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListRecordings: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no recordings, got %d", len(recs))
	}
}

func TestDeleteRecording(t *testing.T) {
	p, _, cfg := newPipeline(t, testsupport.WithFFmpegScript(testsupport.FFmpegScript("")))
	ctx := context.Background()
	id, err := p.Submit(ctx, "alice", "", strings.NewReader("take"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	p.Wait()
	views, err := p.Recordings(ctx, "alice")
	if err != nil || len(views) != 1 {
		t.Fatalf("Recordings = %v, %v", views, err)
	}
	artifact := filepath.Join(cfg.RecordingsPath(), views[0].Filename)

	if err := p.DeleteRecording(ctx, "bob", id); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}
	if err := p.DeleteRecording(ctx, "alice", id); err != nil {
		t.Fatalf("DeleteRecording: %v", err)
	}
	if _, err := os.Stat(artifact); !os.IsNotExist(err) {
		t.Fatalf("expected artifact removed, stat err %v", err)
	}
	if views, _ := p.Recordings(ctx, "alice"); len(views) != 0 {
		t.Fatalf("expected no recordings after delete, got %d", len(views))
	}
}

type gatedMixer struct {
	started chan struct{}
	release chan struct{}
}

func (m *gatedMixer) Denoise(_ context.Context, input, output string) error {
	close(m.started)
	<-m.release
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	return os.WriteFile(output, data, 0o644)
}

func (m *gatedMixer) Mix(context.Context, string, string, string) error {
	return errors.New("mix should not run for a deleted job")
}

func TestSubmitSurvivesJobDeletedDuringProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	mixer := &gatedMixer{started: make(chan struct{}), release: make(chan struct{})}
	p := recording.New(cfg, st, logging.NewNop(), recording.WithMixer(mixer))
	job := readyJob(t, st, cfg, "alice")
	ctx := context.Background()

	id, err := p.Submit(ctx, "alice", job.ID, strings.NewReader("vocal-take"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	<-mixer.started
	if _, err := st.DeleteJob(ctx, "alice", job.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	close(mixer.release)
	p.Wait()

	recs, err := st.ListRecordings(ctx, "alice")
	if err != nil {
		t.Fatalf("ListRecordings: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 recording, got %d", len(recs))
	}
	rec := recs[0]
	if rec.ID != id || rec.JobID != "" {
		t.Fatalf("unexpected recording %+v", rec)
	}
	if !strings.HasPrefix(rec.Filename, "denoised_rec_alice_") {
		t.Fatalf("expected denoised artifact, got %q", rec.Filename)
	}
}
