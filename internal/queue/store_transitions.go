package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ResetStuckProcessing resets jobs left mid-stage by an unclean shutdown back
// to pending. Persisted stage outputs stay in place so the next run resumes
// from the last completed stage.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (?, ?, ?, ?, ?)`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusDownloading,
		StatusSampling,
		StatusExtracting,
		StatusTranscribing,
		StatusClassifying,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimStaleProcessing returns in-flight jobs back to pending when their
// heartbeats expire. Stage outputs are preserved for resumption.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
        SET status = ?, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (?, ?, ?, ?, ?) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusPending,
		now.Format(time.RFC3339Nano),
		StatusDownloading,
		StatusSampling,
		StatusExtracting,
		StatusTranscribing,
		StatusClassifying,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// RequestCancel flags a job for cancellation. Pending jobs are cancelled
// immediately; in-flight jobs are cancelled by the worker at the next stage
// boundary. Terminal jobs are left untouched.
func (s *Store) RequestCancel(ctx context.Context, token string) (*Job, error) {
	job, err := s.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	if job.IsTerminal() {
		return job, nil
	}

	if job.Status == StatusPending {
		if err := s.execWithoutResultRetry(
			ctx,
			`UPDATE jobs SET status = ?, cancel_requested = 1, last_heartbeat = NULL, updated_at = ? WHERE id = ? AND status = ?`,
			StatusCancelled,
			time.Now().UTC().Format(time.RFC3339Nano),
			job.ID,
			StatusPending,
		); err != nil {
			return nil, fmt.Errorf("cancel pending job: %w", err)
		}
		return s.GetByID(ctx, job.ID)
	}

	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET cancel_requested = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		job.ID,
	); err != nil {
		return nil, fmt.Errorf("request cancel: %w", err)
	}
	return s.GetByID(ctx, job.ID)
}

// CancelRequested reports whether cancellation has been flagged for a job.
func (s *Store) CancelRequested(ctx context.Context, id int64) (bool, error) {
	var flag int
	err := s.db.QueryRowContext(ctx, `SELECT cancel_requested FROM jobs WHERE id = ?`, id).Scan(&flag)
	if err != nil {
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return flag != 0, nil
}

// Transition moves a job to the next status, enforcing pipeline order.
func (s *Store) Transition(ctx context.Context, job *Job, to Status) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if !CanTransition(job.Status, to) {
		return fmt.Errorf("invalid transition %s -> %s", job.Status, to)
	}
	job.Status = to
	return s.Update(ctx, job)
}

// RetryFailed moves failed jobs back to pending for reprocessing.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs
            SET status = ?, error_message = NULL, cancel_requested = 0, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			time.Now().UTC().Format(time.RFC3339Nano),
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed jobs: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE jobs
        SET status = ?, error_message = NULL, cancel_requested = 0, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected jobs: %w", err)
	}
	return res.RowsAffected()
}
