package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JulesGR953/OptiScam-Framework/internal/config"
	"github.com/JulesGR953/OptiScam-Framework/internal/logging"
	"github.com/JulesGR953/OptiScam-Framework/internal/queue"
)

// Manager coordinates queue processing across a pool of workers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	services     *Services
	logger       *slog.Logger
	pollInterval time.Duration
	stageTimeout time.Duration
	workers      int

	heartbeat   *HeartbeatMonitor
	classifySem chan struct{}

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	claimMu sync.Mutex
	lastErr error
	lastJob *queue.Job
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, services *Services, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	maxConcurrent := cfg.Classifier.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		services:     services,
		logger:       logger,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		stageTimeout: time.Duration(cfg.Workflow.StageTimeoutSeconds) * time.Second,
		workers:      workers,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		classifySem: make(chan struct{}, maxConcurrent),
	}
}
