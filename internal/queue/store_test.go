package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/JulesGR953/OptiScam-Framework/internal/queue"
	"github.com/JulesGR953/OptiScam-Framework/internal/testsupport"
)

func TestOpenCreatesSchemaAndInsertsJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, err := store.NewJob(ctx, "/videos/example.mp4", "sampled")
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}
	if job.ID == 0 {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Token == "" {
		t.Fatal("expected job token to be assigned")
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}

	fetched, err := store.GetByToken(ctx, job.Token)
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if fetched == nil || fetched.ID != job.ID {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
}

func TestUpdateRoundTripsStageOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "/videos/example.mp4", "sampled")

	job.Status = queue.StatusExtracting
	job.LocalPath = "/videos/example.mp4"
	job.Title = "Example"
	job.FramesJSON = `[{"index":0,"timestamp":0.0,"sharpness":150.5}]`
	job.DetectionsJSON = `[{"text":"free money","confidence":0.92}]`
	now := time.Now().UTC()
	job.LastHeartbeat = &now
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusExtracting {
		t.Fatalf("expected extracting, got %s", fetched.Status)
	}
	if fetched.FramesJSON != job.FramesJSON {
		t.Fatalf("frames json mismatch: %q", fetched.FramesJSON)
	}
	if fetched.DetectionsJSON != job.DetectionsJSON {
		t.Fatalf("detections json mismatch: %q", fetched.DetectionsJSON)
	}
	if fetched.LastHeartbeat == nil {
		t.Fatal("expected heartbeat to persist")
	}
}

func TestNextForStatusesReturnsOldest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first := testsupport.NewJob(t, store, "/videos/first.mp4", "sampled")
	testsupport.NewJob(t, store, "/videos/second.mp4", "sampled")

	next, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending job, got %#v", next)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusClassifying)
	if err != nil {
		t.Fatalf("NextForStatuses failed: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no classifying jobs, got %#v", none)
	}
}

func TestRequestCancelPendingIsImmediate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "/videos/example.mp4", "sampled")

	cancelled, err := store.RequestCancel(ctx, job.Token)
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if cancelled.Status != queue.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
}

func TestRequestCancelInFlightSetsFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "/videos/example.mp4", "sampled")
	job.Status = queue.StatusSampling
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	flagged, err := store.RequestCancel(ctx, job.Token)
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if flagged.Status != queue.StatusSampling {
		t.Fatalf("expected status untouched, got %s", flagged.Status)
	}
	if !flagged.CancelRequested {
		t.Fatal("expected cancel flag to be set")
	}

	requested, err := store.CancelRequested(ctx, job.ID)
	if err != nil {
		t.Fatalf("CancelRequested failed: %v", err)
	}
	if !requested {
		t.Fatal("expected cancel flag via CancelRequested")
	}
}

func TestRequestCancelTerminalIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "/videos/example.mp4", "sampled")
	job.Status = queue.StatusCompleted
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	result, err := store.RequestCancel(ctx, job.Token)
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if result.Status != queue.StatusCompleted {
		t.Fatalf("expected completed to stay terminal, got %s", result.Status)
	}
	if result.CancelRequested {
		t.Fatal("terminal job should not carry cancel flag")
	}
}

func TestReclaimStaleProcessingPreservesOutputs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "/videos/example.mp4", "sampled")
	job.Status = queue.StatusTranscribing
	job.FramesJSON = `[{"index":0}]`
	job.DetectionsJSON = `[]`
	stale := time.Now().UTC().Add(-10 * time.Minute)
	job.LastHeartbeat = &stale
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reclaimed, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected one reclaimed job, got %d", reclaimed)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusPending {
		t.Fatalf("expected pending after reclaim, got %s", fetched.Status)
	}
	if fetched.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared after reclaim")
	}
	if fetched.FramesJSON == "" || fetched.DetectionsJSON == "" {
		t.Fatal("expected persisted stage outputs to survive reclaim")
	}
}

func TestReclaimStaleProcessingSkipsFreshHeartbeats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "/videos/example.mp4", "sampled")
	job.Status = queue.StatusClassifying
	fresh := time.Now().UTC()
	job.LastHeartbeat = &fresh
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reclaimed, err := store.ReclaimStaleProcessing(ctx, time.Now().UTC().Add(-5*time.Minute))
	if err != nil {
		t.Fatalf("ReclaimStaleProcessing failed: %v", err)
	}
	if reclaimed != 0 {
		t.Fatalf("expected no reclaimed jobs, got %d", reclaimed)
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	processing := []queue.Status{
		queue.StatusDownloading,
		queue.StatusSampling,
		queue.StatusExtracting,
		queue.StatusTranscribing,
		queue.StatusClassifying,
	}
	for _, status := range processing {
		job := testsupport.NewJob(t, store, "/videos/"+string(status)+".mp4", "sampled")
		job.Status = status
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}
	done := testsupport.NewJob(t, store, "/videos/done.mp4", "sampled")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reset, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if reset != int64(len(processing)) {
		t.Fatalf("expected %d reset jobs, got %d", len(processing), reset)
	}

	fetched, err := store.GetByID(ctx, done.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusCompleted {
		t.Fatalf("completed job should be untouched, got %s", fetched.Status)
	}
}

func TestRetryFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.NewJob(t, store, "/videos/example.mp4", "sampled")
	job.SetFailed("engine unavailable")
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	retried, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected one retried job, got %d", retried)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != queue.StatusPending {
		t.Fatalf("expected pending after retry, got %s", fetched.Status)
	}
	if fetched.ErrorMessage != "" {
		t.Fatalf("expected error message cleared, got %q", fetched.ErrorMessage)
	}
}

func TestStatsAndClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	testsupport.NewJob(t, store, "/videos/a.mp4", "sampled")
	completed := testsupport.NewJob(t, store, "/videos/b.mp4", "holistic")
	completed.Status = queue.StatusCompleted
	if err := store.Update(ctx, completed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusPending] != 1 || stats[queue.StatusCompleted] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	cleared, err := store.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected one cleared job, got %d", cleared)
	}

	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Status != queue.StatusPending {
		t.Fatalf("unexpected remaining jobs: %#v", remaining)
	}
}

func TestCanTransitionIsOneDirectional(t *testing.T) {
	cases := []struct {
		from, to queue.Status
		ok       bool
	}{
		{queue.StatusPending, queue.StatusDownloading, true},
		{queue.StatusSampling, queue.StatusExtracting, true},
		{queue.StatusClassifying, queue.StatusCompleted, true},
		{queue.StatusSampling, queue.StatusFailed, true},
		{queue.StatusPending, queue.StatusCancelled, true},
		{queue.StatusTranscribing, queue.StatusCancelled, true},
		{queue.StatusSampling, queue.StatusClassifying, false},
		{queue.StatusPending, queue.StatusCompleted, false},
		{queue.StatusSampling, queue.StatusCompleted, false},
		{queue.StatusExtracting, queue.StatusSampling, false},
		{queue.StatusCompleted, queue.StatusPending, false},
		{queue.StatusFailed, queue.StatusPending, false},
		{queue.StatusCancelled, queue.StatusFailed, false},
		{queue.StatusSampling, queue.StatusSampling, false},
	}
	for _, tc := range cases {
		if got := queue.CanTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}
