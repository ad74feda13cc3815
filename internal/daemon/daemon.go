package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"github.com/JulesGR953/OptiScam-Framework/internal/config"
	"github.com/JulesGR953/OptiScam-Framework/internal/logging"
	"github.com/JulesGR953/OptiScam-Framework/internal/queue"
	"github.com/JulesGR953/OptiScam-Framework/internal/workflow"

	"log/slog"
)

// Daemon coordinates background processing and enforces single-instance
// execution via a file lock.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
	APIAddress   string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, and workflow manager")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.LogDir(), "optiscamd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and launches workers and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another optiscam daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.workflow.Stop()
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return err
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("queue_db", d.store.Path()),
	)
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information for the status API and CLI.
func (d *Daemon) Status(ctx context.Context) Status {
	summary, err := d.workflow.StatusSummary(ctx)
	if err != nil {
		d.logger.Warn("status summary failed", logging.Error(err))
	}
	status := Status{
		Running:      d.running.Load(),
		Workflow:     summary,
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
	if d.api != nil {
		status.APIAddress = d.api.address()
	}
	return status
}

// Submit enqueues a new analysis job and returns it. Title and description
// are optional caller-supplied metadata fed to the classifier prompt.
func (d *Daemon) Submit(ctx context.Context, source, mode, title, description string) (*queue.Job, error) {
	normalized, err := normalizeMode(d.cfg, mode)
	if err != nil {
		return nil, err
	}
	job, err := d.store.NewJob(ctx, source, normalized)
	if err != nil {
		return nil, err
	}
	if title != "" || description != "" {
		job.Title = title
		job.Description = description
		if err := d.store.Update(ctx, job); err != nil {
			return nil, fmt.Errorf("persist submission metadata: %w", err)
		}
	}
	return job, nil
}

// Cancel requests cancellation for the job with the given token.
func (d *Daemon) Cancel(ctx context.Context, token string) (*queue.Job, error) {
	return d.store.RequestCancel(ctx, token)
}

// ListQueue returns jobs filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	return d.store.List(ctx, statuses...)
}

func normalizeMode(cfg *config.Config, mode string) (string, error) {
	if mode == "" {
		mode = cfg.Classifier.Mode
	}
	switch mode {
	case config.ClassifierModeSampled, config.ClassifierModeHolistic:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown classification mode %q", mode)
	}
}
