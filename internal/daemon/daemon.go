package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"encore/internal/config"
	"encore/internal/deps"
	"encore/internal/logging"
	"encore/internal/pipeline"
	"encore/internal/preflight"
	"encore/internal/recording"
	"encore/internal/store"
)

const shutdownGrace = 30 * time.Second

// Daemon owns the store, background pipelines, and HTTP API for one process.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *store.Store
	jobs       *pipeline.Orchestrator
	recordings *recording.Pipeline
	api        *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	StorageRoot  string
	Jobs         map[store.Status]int
	Dependencies []deps.Status
	Checks       []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, jobs *pipeline.Orchestrator, recordings *recording.Pipeline) (*Daemon, error) {
	if cfg == nil || st == nil || jobs == nil || recordings == nil {
		return nil, errors.New("daemon requires config, store, job orchestrator, and recording pipeline")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		store:      st,
		jobs:       jobs,
		recordings: recordings,
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, fails stale jobs, and begins serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another encore daemon instance is already running")
	}

	if _, err := d.jobs.RecoverStale(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("recover stale jobs: %w", err)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("encore daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.addr()),
	)
	return nil
}

// Stop stops serving, cancels in-flight runs, and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := d.jobs.Shutdown(shutdownCtx); err != nil {
		logging.WarnWithContext(d.logger, "job runs did not stop in time", "shutdown_timeout",
			logging.Error(err),
			logging.String(logging.FieldImpact, "interrupted jobs are failed on next start"),
		)
	}
	if err := d.recordings.Shutdown(shutdownCtx); err != nil {
		logging.WarnWithContext(d.logger, "recording runs did not stop in time", "shutdown_timeout",
			logging.Error(err),
			logging.String(logging.FieldImpact, "raw captures stay on disk without a recording row"),
		)
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("encore daemon stopped", logging.String(logging.FieldEventType, "daemon_stop"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the address the API listens on, or "" before Start.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	counts, err := d.store.CountJobs(ctx)
	if err != nil {
		d.logger.Warn("job count failed", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		StorageRoot:  d.cfg.Paths.StorageRoot,
		Jobs:         counts,
		Dependencies: deps.Check(d.cfg),
		Checks:       preflight.RunAll(d.cfg),
	}
}
