package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"encore/internal/services"
	"encore/internal/store"
	"encore/internal/testsupport"
)

func TestCreateAndGetJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "alice", "song.wav", "/media/uploads/alice/1_song.wav")
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if job.ID == "" || job.Status != store.StatusProcessing || job.Progress != 0 {
		t.Fatalf("unexpected job %+v", job)
	}

	fetched, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if fetched.Title != "song.wav" || fetched.SourcePath != job.SourcePath || fetched.UserID != "alice" {
		t.Fatalf("unexpected fetched job %+v", fetched)
	}
	if fetched.InstrumentalPath != "" || fetched.Lyrics != nil {
		t.Fatalf("processing job must not carry results: %+v", fetched)
	}
	if fetched.CreatedAt.IsZero() {
		t.Fatal("expected created_at to round trip")
	}

	if _, err := st.GetJob(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateProgressIsMonotonic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	job, err := st.CreateJob(ctx, "u", "a.wav", "/a.wav")
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	steps := []struct {
		in      int
		applied bool
		want    int
	}{
		{0, false, 0},
		{10, true, 10},
		{5, false, 10},
		{10, false, 10},
		{250, true, 100},
		{-1, false, 100},
	}
	for _, step := range steps {
		applied, err := st.UpdateProgress(ctx, job.ID, step.in)
		if err != nil {
			t.Fatalf("UpdateProgress(%d): %v", step.in, err)
		}
		if applied != step.applied {
			t.Fatalf("UpdateProgress(%d) applied = %v, want %v", step.in, applied, step.applied)
		}
		got, _ := st.GetJob(ctx, job.ID)
		if got.Progress != step.want {
			t.Fatalf("after %d progress = %d, want %d", step.in, got.Progress, step.want)
		}
	}
}

func TestConcurrentProgressNeverDecreases(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	job, _ := st.CreateJob(ctx, "u", "a.wav", "/a.wav")

	var wg sync.WaitGroup
	for worker := 0; worker < 4; worker++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for p := offset; p <= 100; p += 4 {
				if _, err := st.UpdateProgress(ctx, job.ID, p); err != nil {
					t.Errorf("UpdateProgress: %v", err)
					return
				}
			}
		}(worker)
	}
	wg.Wait()

	got, _ := st.GetJob(ctx, job.ID)
	if got.Progress != 100 {
		t.Fatalf("progress = %d, want 100", got.Progress)
	}
}

func TestCompleteJobSetsAllResults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	job, _ := st.CreateJob(ctx, "u", "a.wav", "/a.wav")
	_, _ = st.UpdateProgress(ctx, job.ID, 60)

	lyrics := []store.Segment{{Start: 0, End: 2.5, Text: "hello"}, {Start: 2.5, End: 5, Text: "world"}}
	if err := st.CompleteJob(ctx, job.ID, "/inst/no_vocals.wav", lyrics); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	got, _ := st.GetJob(ctx, job.ID)
	if got.Status != store.StatusReady || got.Progress != 100 {
		t.Fatalf("unexpected state %s/%d", got.Status, got.Progress)
	}
	if got.InstrumentalPath != "/inst/no_vocals.wav" || len(got.Lyrics) != 2 || got.Lyrics[1].Text != "world" {
		t.Fatalf("results not persisted: %+v", got)
	}

	if err := st.FailJob(ctx, job.ID, "late failure"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("terminal job must not transition again, got %v", err)
	}
	if applied, _ := st.UpdateProgress(ctx, job.ID, 100); applied {
		t.Fatal("terminal job must not accept progress")
	}
}

func TestCompleteJobRejectsErroredJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	job, _ := st.CreateJob(ctx, "u", "a.wav", "/a.wav")
	_, _ = st.UpdateProgress(ctx, job.ID, 35)

	if err := st.FailJob(ctx, job.ID, "tool failed: demucs exited with code 1"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}
	if err := st.CompleteJob(ctx, job.ID, "/x.wav", nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	got, _ := st.GetJob(ctx, job.ID)
	if got.Status != store.StatusError || got.Progress != 35 {
		t.Fatalf("unexpected state %s/%d", got.Status, got.Progress)
	}
	if got.InstrumentalPath != "" || got.Lyrics != nil {
		t.Fatal("errored job must not gain results")
	}
	if got.ErrorMessage == "" {
		t.Fatal("expected error message to persist")
	}
}

func TestListJobsNewestFirstPerUser(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, _ := st.CreateJob(ctx, "alice", "one.wav", "/1")
	time.Sleep(2 * time.Millisecond)
	second, _ := st.CreateJob(ctx, "alice", "two.wav", "/2")
	_, _ = st.CreateJob(ctx, "bob", "other.wav", "/3")

	jobs, err := st.ListJobs(ctx, "alice")
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != second.ID || jobs[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", jobs)
	}
}

func TestDeleteJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	job, _ := st.CreateJob(ctx, "alice", "one.wav", "/1")

	if _, err := st.DeleteJob(ctx, "alice", job.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("processing job delete should fail, got %v", err)
	}
	_ = st.FailJob(ctx, job.ID, "boom")
	if _, err := st.DeleteJob(ctx, "mallory", job.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("foreign delete should be not found, got %v", err)
	}
	deleted, err := st.DeleteJob(ctx, "alice", job.ID)
	if err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if deleted.SourcePath != "/1" {
		t.Fatalf("expected deleted row, got %+v", deleted)
	}
	if _, err := st.GetJob(ctx, job.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected job gone, got %v", err)
	}
}

func TestFailStaleJobsOnlyTouchesProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stale, _ := st.CreateJob(ctx, "u", "a.wav", "/a")
	ready, _ := st.CreateJob(ctx, "u", "b.wav", "/b")
	_ = st.CompleteJob(ctx, ready.ID, "/inst.wav", []store.Segment{{Text: "x"}})

	n, err := st.FailStaleJobs(ctx, "daemon restarted")
	if err != nil {
		t.Fatalf("FailStaleJobs: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 stale job, got %d", n)
	}
	got, _ := st.GetJob(ctx, stale.ID)
	if got.Status != store.StatusError || got.ErrorMessage != "daemon restarted" {
		t.Fatalf("unexpected stale job %+v", got)
	}
	still, _ := st.GetJob(ctx, ready.ID)
	if still.Status != store.StatusReady {
		t.Fatalf("ready job changed to %s", still.Status)
	}

	counts, err := st.CountJobs(ctx)
	if err != nil {
		t.Fatalf("CountJobs: %v", err)
	}
	if counts[store.StatusError] != 1 || counts[store.StatusReady] != 1 || counts[store.StatusProcessing] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestRecordingsLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	job, _ := st.CreateJob(ctx, "alice", "a.wav", "/a")

	duration := 12.5
	older, err := st.CreateRecording(ctx, store.Recording{
		UserID:    "alice",
		JobID:     job.ID,
		Title:     "Recording 2026-10-15 09:00",
		Filename:  "mixed_rec_alice_1.mp3",
		Duration:  &duration,
		CreatedAt: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	newer, err := st.CreateRecording(ctx, store.Recording{UserID: "alice", Title: "t", Filename: "denoised_rec_alice_2.webm"})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}

	recs, err := st.ListRecordings(ctx, "alice")
	if err != nil {
		t.Fatalf("ListRecordings: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != newer.ID || recs[1].ID != older.ID {
		t.Fatalf("unexpected order %+v", recs)
	}
	if recs[1].Duration == nil || *recs[1].Duration != 12.5 || recs[1].JobID != job.ID {
		t.Fatalf("fields not persisted: %+v", recs[1])
	}
	if recs[0].Duration != nil || recs[0].JobID != "" {
		t.Fatalf("optional fields should be absent: %+v", recs[0])
	}

	if _, err := st.DeleteRecording(ctx, "bob", older.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("foreign delete should fail, got %v", err)
	}
	if _, err := st.DeleteRecording(ctx, "alice", older.ID); err != nil {
		t.Fatalf("DeleteRecording: %v", err)
	}
	if _, err := st.GetRecording(ctx, older.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected recording gone, got %v", err)
	}
}

func TestCreateRecordingDropsDeletedJobLink(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	kept, _ := st.CreateJob(ctx, "alice", "kept.wav", "/kept")
	gone, _ := st.CreateJob(ctx, "alice", "gone.wav", "/gone")
	_ = st.FailJob(ctx, gone.ID, "boom")
	if _, err := st.DeleteJob(ctx, "alice", gone.ID); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}

	linked, err := st.CreateRecording(ctx, store.Recording{UserID: "alice", JobID: kept.ID, Title: "t", Filename: "a.webm"})
	if err != nil {
		t.Fatalf("CreateRecording with live job: %v", err)
	}
	if linked.JobID != kept.ID {
		t.Fatalf("job link = %q, want %q", linked.JobID, kept.ID)
	}

	orphan, err := st.CreateRecording(ctx, store.Recording{UserID: "alice", JobID: gone.ID, Title: "t", Filename: "b.webm"})
	if err != nil {
		t.Fatalf("CreateRecording with deleted job: %v", err)
	}
	if orphan.JobID != "" {
		t.Fatalf("expected dropped job link, got %q", orphan.JobID)
	}
	fetched, err := st.GetRecording(ctx, orphan.ID)
	if err != nil {
		t.Fatalf("GetRecording: %v", err)
	}
	if fetched.JobID != "" || fetched.Filename != "b.webm" {
		t.Fatalf("unexpected stored recording %+v", fetched)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "encore.db")
	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	job, _ := st.CreateJob(context.Background(), "u", "a.wav", "/a")
	_ = st.Close()

	reopened, err := store.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetJob(context.Background(), job.ID); err != nil {
		t.Fatalf("GetJob after reopen: %v", err)
	}
}
