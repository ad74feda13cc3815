package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/JulesGR953/OptiScam-Framework/internal/classify"
	"github.com/JulesGR953/OptiScam-Framework/internal/config"
	"github.com/JulesGR953/OptiScam-Framework/internal/logging"
	"github.com/JulesGR953/OptiScam-Framework/internal/media"
	"github.com/JulesGR953/OptiScam-Framework/internal/ocr"
	"github.com/JulesGR953/OptiScam-Framework/internal/queue"
	"github.com/JulesGR953/OptiScam-Framework/internal/report"
	"github.com/JulesGR953/OptiScam-Framework/internal/services"
	"github.com/JulesGR953/OptiScam-Framework/internal/transcribe"
)

func (m *Manager) runJob(ctx context.Context, workerLogger *slog.Logger, job *queue.Job) error {
	jobCtx := services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(jobCtx, workerLogger)

	hbCtx, hbCancel := context.WithCancel(jobCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, job.ID)
	defer func() {
		hbCancel()
		hbWG.Wait()
	}()

	jobStart := time.Now()
	logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("source", job.Source),
		logging.String("mode", m.jobMode(job)),
	)

	steps := []struct {
		name string
		run  func(context.Context, *slog.Logger, *queue.Job) error
	}{
		{"download", m.stageDownload},
		{"sample", m.stageSample},
		{"analyze", m.stageAnalyze},
		{"classify", m.stageClassify},
		{"report", m.stageReport},
	}

	for _, step := range steps {
		cancelled, err := m.checkCancelled(jobCtx, logger, job)
		if err != nil {
			m.setLastError(err)
			return err
		}
		if cancelled {
			return nil
		}

		if err := step.run(jobCtx, logger, job); err != nil {
			if errors.Is(err, context.Canceled) && jobCtx.Err() != nil {
				logger.Debug("job interrupted by shutdown", logging.String(logging.FieldStage, step.name))
				return context.Canceled
			}
			m.handleStageFailure(jobCtx, logger, step.name, job, err)
			m.setLastError(err)
			return err
		}
	}

	job.Status = queue.StatusCompleted
	job.LastHeartbeat = nil
	if err := m.store.Update(jobCtx, job); err != nil {
		wrapped := fmt.Errorf("persist completion: %w", err)
		logger.Error("failed to persist job completion", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	m.setLastJob(job)

	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.String("report", job.ReportPath),
		logging.Duration("job_duration", time.Since(jobStart)),
	)
	return nil
}

func (m *Manager) checkCancelled(ctx context.Context, logger *slog.Logger, job *queue.Job) (bool, error) {
	requested, err := m.store.CancelRequested(ctx, job.ID)
	if err != nil {
		return false, fmt.Errorf("check cancel flag: %w", err)
	}
	if !requested {
		return false, nil
	}

	job.CancelRequested = true
	job.SetCancelled()
	if err := m.store.Update(ctx, job); err != nil {
		return false, fmt.Errorf("persist cancellation: %w", err)
	}
	m.setLastJob(job)
	logger.Info("job cancelled at stage boundary",
		logging.String(logging.FieldEventType, "job_cancelled"),
	)
	return true, nil
}

// transition moves the job onto a processing status if it is not already
// past it.
func (m *Manager) transition(ctx context.Context, job *queue.Job, to queue.Status) error {
	if job.Status == to {
		return nil
	}
	if !queue.CanTransition(job.Status, to) {
		return fmt.Errorf("invalid transition %s -> %s", job.Status, to)
	}
	job.Status = to
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist transition to %s: %w", to, err)
	}
	m.setLastJob(job)
	return nil
}

// stageCtx derives a stage-scoped context carrying the stage name and the
// configured stage timeout.
func (m *Manager) stageCtx(ctx context.Context, name string) (context.Context, context.CancelFunc) {
	stageCtx := services.WithStage(ctx, name)
	if m.stageTimeout > 0 {
		return context.WithTimeout(stageCtx, m.stageTimeout)
	}
	return context.WithCancel(stageCtx)
}

// timeoutErr converts a stage deadline into the timeout error kind, leaving
// daemon shutdown untouched.
func (m *Manager) timeoutErr(parent context.Context, stageName string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		return services.Wrap(
			services.ErrTimeout, stageName, "execute",
			fmt.Sprintf("stage exceeded %s", m.stageTimeout), err)
	}
	return err
}

func (m *Manager) jobMode(job *queue.Job) string {
	mode := strings.TrimSpace(job.Mode)
	if mode == "" {
		mode = m.cfg.Classifier.Mode
	}
	if mode == "" {
		mode = config.ClassifierModeSampled
	}
	return mode
}

func (m *Manager) stageDownload(ctx context.Context, logger *slog.Logger, job *queue.Job) error {
	if job.LocalPath != "" {
		return nil
	}

	stageCtx, cancel := m.stageCtx(ctx, "download")
	defer cancel()

	destDir := filepath.Join(m.cfg.JobDir(job.Token), "download")
	resolved, err := m.services.Resolver.Fetch(stageCtx, job.Source, destDir)
	if err != nil {
		return m.timeoutErr(ctx, "download", err)
	}

	job.LocalPath = resolved.LocalPath
	if job.Title == "" {
		job.Title = resolved.Title
	}
	if job.Description == "" {
		job.Description = resolved.Description
	}
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist download result: %w", err)
	}
	logger.Info("source resolved",
		logging.String(logging.FieldStage, "download"),
		logging.String("local_path", job.LocalPath),
	)
	return nil
}

func (m *Manager) stageSample(ctx context.Context, logger *slog.Logger, job *queue.Job) error {
	if err := m.transition(ctx, job, queue.StatusSampling); err != nil {
		return err
	}
	if job.FramesJSON != "" {
		return nil
	}

	stageCtx, cancel := m.stageCtx(ctx, "sample")
	defer cancel()

	mode := m.jobMode(job)
	stride := m.cfg.Sampler.Stride
	if mode == config.ClassifierModeHolistic {
		stride = m.cfg.Sampler.HolisticStride
	}
	opts := media.SampleOptions{
		Stride:             stride,
		MaxFrames:          m.cfg.Sampler.MaxFrames,
		SharpnessThreshold: m.cfg.Sampler.SharpnessThreshold,
		FilterEnabled:      m.cfg.Sampler.SharpnessFilterEnabled,
	}
	frameDir := filepath.Join(m.cfg.JobDir(job.Token), "frames")
	frames, err := m.services.Sampler.Sample(stageCtx, job.LocalPath, frameDir, opts)
	if err != nil {
		return m.timeoutErr(ctx, "sample", err)
	}

	encoded, err := media.EncodeFrames(frames)
	if err != nil {
		return err
	}
	job.FramesJSON = encoded
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist frames: %w", err)
	}
	logger.Info("frames sampled",
		logging.String(logging.FieldStage, "sample"),
		logging.Int("frames", len(frames)),
	)
	return nil
}

// stageAnalyze runs text extraction and speech transcription concurrently.
// The job status reads extracting until detections persist, then
// transcribing until the transcript does.
func (m *Manager) stageAnalyze(ctx context.Context, logger *slog.Logger, job *queue.Job) error {
	needExtract := job.DetectionsJSON == ""
	needTranscribe := job.TranscriptJSON == ""

	if err := m.transition(ctx, job, queue.StatusExtracting); err != nil {
		return err
	}
	if !needExtract && !needTranscribe {
		return m.transition(ctx, job, queue.StatusTranscribing)
	}

	frames, err := media.DecodeFrames(job.FramesJSON)
	if err != nil {
		return err
	}

	var (
		transcriptWG  sync.WaitGroup
		transcript    transcribe.Transcript
		transcriptErr error
	)
	if needTranscribe {
		stageCtx, cancel := m.stageCtx(ctx, "transcribe")
		defer cancel()
		transcriptWG.Add(1)
		go func() {
			defer transcriptWG.Done()
			workDir := filepath.Join(m.cfg.JobDir(job.Token), "audio")
			transcript, transcriptErr = m.services.Transcriber.Transcribe(stageCtx, job.LocalPath, workDir)
		}()
	}

	if needExtract {
		stageCtx, cancel := m.stageCtx(ctx, "extract")
		detections, extractErr := m.services.Extractor.ExtractFromFrames(stageCtx, frames)
		cancel()
		if extractErr != nil {
			transcriptWG.Wait()
			return m.timeoutErr(ctx, "extract", extractErr)
		}
		encoded, encErr := ocr.EncodeDetections(detections)
		if encErr != nil {
			transcriptWG.Wait()
			return encErr
		}
		job.DetectionsJSON = encoded
		logger.Info("text extracted",
			logging.String(logging.FieldStage, "extract"),
			logging.Int("detections", len(detections)),
		)
	}

	if err := m.transition(ctx, job, queue.StatusTranscribing); err != nil {
		transcriptWG.Wait()
		return err
	}
	if err := m.store.Update(ctx, job); err != nil {
		transcriptWG.Wait()
		return fmt.Errorf("persist detections: %w", err)
	}

	transcriptWG.Wait()
	if needTranscribe {
		if transcriptErr != nil {
			return m.timeoutErr(ctx, "transcribe", transcriptErr)
		}
		encoded, encErr := transcript.Encode()
		if encErr != nil {
			return encErr
		}
		job.TranscriptJSON = encoded
		if err := m.store.Update(ctx, job); err != nil {
			return fmt.Errorf("persist transcript: %w", err)
		}
		logger.Info("speech transcribed",
			logging.String(logging.FieldStage, "transcribe"),
			logging.Int("segments", len(transcript.Segments)),
		)
	}
	return nil
}

func (m *Manager) stageClassify(ctx context.Context, logger *slog.Logger, job *queue.Job) error {
	if err := m.transition(ctx, job, queue.StatusClassifying); err != nil {
		return err
	}
	if job.VerdictJSON != "" {
		return nil
	}

	// The VLM is the GPU-bound bottleneck; bound concurrent requests.
	select {
	case m.classifySem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-m.classifySem }()

	stageCtx, cancel := m.stageCtx(ctx, "classify")
	defer cancel()

	frames, err := media.DecodeFrames(job.FramesJSON)
	if err != nil {
		return err
	}
	detections, err := ocr.DecodeDetections(job.DetectionsJSON)
	if err != nil {
		return err
	}
	transcript, err := transcribe.Decode(job.TranscriptJSON)
	if err != nil {
		return err
	}

	evidence := classify.Evidence{
		Title:       job.Title,
		Description: job.Description,
		Timeline:    ocr.FormatTimeline(ocr.BuildTimeline(detections)),
		Transcript:  transcript.FullText(),
	}

	verdict, err := m.services.Classifier.Classify(stageCtx, m.jobMode(job), frames, evidence)
	if err != nil {
		return m.timeoutErr(ctx, "classify", err)
	}

	encoded, err := verdict.Encode()
	if err != nil {
		return err
	}
	job.VerdictJSON = encoded
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist verdict: %w", err)
	}
	logger.Info("verdict rendered",
		logging.String(logging.FieldStage, "classify"),
		logging.Bool("scam", verdict.Scam),
		logging.Float64("confidence", verdict.Confidence),
	)
	return nil
}

func (m *Manager) stageReport(ctx context.Context, logger *slog.Logger, job *queue.Job) error {
	if job.ReportPath != "" {
		return nil
	}

	assembled, err := report.Assemble(job)
	if err != nil {
		return err
	}
	path, err := m.services.Sink.Write(ctx, assembled)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	job.ReportPath = path
	if err := m.store.Update(ctx, job); err != nil {
		return fmt.Errorf("persist report path: %w", err)
	}
	logger.Info("report written",
		logging.String(logging.FieldStage, "report"),
		logging.String("path", path),
	)
	return nil
}
