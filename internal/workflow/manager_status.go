package workflow

import (
	"context"

	"github.com/JulesGR953/OptiScam-Framework/internal/queue"
	"github.com/JulesGR953/OptiScam-Framework/internal/stage"
)

// StatusSummary is a point-in-time snapshot of the daemon for the status API.
type StatusSummary struct {
	Running    bool           `json:"running"`
	Workers    int            `json:"workers"`
	QueueStats queue.Stats    `json:"queue_stats"`
	LastError  string         `json:"last_error,omitempty"`
	LastJob    *queue.Job     `json:"last_job,omitempty"`
	Health     []stage.Health `json:"health"`
}

// StatusSummary gathers queue counts and dependency health.
func (m *Manager) StatusSummary(ctx context.Context) (StatusSummary, error) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return StatusSummary{}, err
	}

	m.mu.RLock()
	summary := StatusSummary{
		Running:    m.running,
		Workers:    m.workers,
		QueueStats: stats,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastJob != nil {
		copied := *m.lastJob
		summary.LastJob = &copied
	}
	m.mu.RUnlock()

	summary.Health = m.services.HealthChecks(ctx)
	return summary, nil
}

// Health runs the dependency checks without gathering queue stats.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	return m.services.HealthChecks(ctx)
}

// Running reports whether workers are active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastJob(job *queue.Job) {
	m.mu.Lock()
	copied := *job
	m.lastJob = &copied
	m.mu.Unlock()
}
