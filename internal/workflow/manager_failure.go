package workflow

import (
	"context"
	"log/slog"

	"github.com/JulesGR953/OptiScam-Framework/internal/logging"
	"github.com/JulesGR953/OptiScam-Framework/internal/queue"
	"github.com/JulesGR953/OptiScam-Framework/internal/services"
)

// handleStageFailure marks the job failed and records the classified error.
// The stage outputs persisted so far stay on the row for inspection.
func (m *Manager) handleStageFailure(ctx context.Context, logger *slog.Logger, stageName string, job *queue.Job, stageErr error) {
	details := services.Details(stageErr)
	if details.Stage == "" {
		details.Stage = stageName
	}

	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldStage, details.Stage),
		logging.String(logging.FieldErrorKind, details.Kind),
		logging.Alert("job_failed"),
		logging.Error(stageErr),
	)

	job.SetFailed(details.Message)
	job.LastHeartbeat = nil
	if err := m.store.Update(ctx, job); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
		return
	}
	m.setLastJob(job)
}
