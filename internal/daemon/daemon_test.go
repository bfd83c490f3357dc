package daemon_test

import (
	"context"
	"testing"

	"encore/internal/config"
	"encore/internal/daemon"
	"encore/internal/logging"
	"encore/internal/pipeline"
	"encore/internal/recording"
	"encore/internal/store"
	"encore/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *store.Store) {
	t.Helper()
	st := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	d, err := daemon.New(cfg, st, logger, pipeline.New(cfg, st, logger), recording.New(cfg, st, logger))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, st
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Status(ctx).Running {
		t.Fatal("expected daemon to report running")
	}
	if d.Addr() == "" {
		t.Fatal("expected a listening address")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	other, _ := newDaemon(t, cfg)
	if err := other.Start(ctx); err == nil {
		t.Fatal("expected lock contention to prevent a second daemon")
	}

	d.Stop()
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
	if err := other.Start(ctx); err != nil {
		t.Fatalf("expected start after release to succeed: %v", err)
	}
}

func TestStartFailsStaleJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, st := newDaemon(t, cfg)
	ctx := context.Background()

	job, err := st.CreateJob(ctx, "alice", "a.wav", "/tmp/a.wav")
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	got, err := st.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != store.StatusError || got.ErrorMessage != "daemon restarted" {
		t.Fatalf("expected stale job failed, got %s %q", got.Status, got.ErrorMessage)
	}
	if counts := d.Status(ctx).Jobs; counts[store.StatusError] != 1 || counts[store.StatusProcessing] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
}
