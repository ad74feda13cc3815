package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/JulesGR953/OptiScam-Framework/internal/classify"
	"github.com/JulesGR953/OptiScam-Framework/internal/config"
	"github.com/JulesGR953/OptiScam-Framework/internal/logging"
	"github.com/JulesGR953/OptiScam-Framework/internal/media"
	"github.com/JulesGR953/OptiScam-Framework/internal/ocr"
	"github.com/JulesGR953/OptiScam-Framework/internal/queue"
	"github.com/JulesGR953/OptiScam-Framework/internal/report"
	"github.com/JulesGR953/OptiScam-Framework/internal/services"
	"github.com/JulesGR953/OptiScam-Framework/internal/source"
	"github.com/JulesGR953/OptiScam-Framework/internal/testsupport"
	"github.com/JulesGR953/OptiScam-Framework/internal/transcribe"
)

type fakeResolver struct {
	calls int32
	err   error
}

func (f *fakeResolver) Fetch(_ context.Context, src, destDir string) (source.Resolved, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return source.Resolved{}, f.err
	}
	return source.Resolved{
		LocalPath:   filepath.Join(destDir, "video.mp4"),
		Title:       "Stub Video",
		Description: "stub description",
	}, nil
}

type fakeSampler struct {
	calls int32
	err   error
}

func (f *fakeSampler) Sample(_ context.Context, _, _ string, _ media.SampleOptions) ([]media.Frame, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return []media.Frame{
		{Index: 0, Timestamp: 0, Sharpness: 120, Path: "frame_000000.png"},
		{Index: 30, Timestamp: 1, Sharpness: 95, Path: "frame_000030.png"},
	}, nil
}

type fakeExtractor struct {
	calls int32
	err   error
}

func (f *fakeExtractor) ExtractFromFrames(_ context.Context, frames []media.Frame) ([]ocr.Detection, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return []ocr.Detection{
		{Text: "GUARANTEED RETURNS", Confidence: 0.97, FrameIndex: frames[0].Index, Engine: ocr.EnginePrimary},
	}, nil
}

type fakeTranscriber struct {
	calls int32
	err   error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _, _ string) (transcribe.Transcript, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return transcribe.Transcript{}, f.err
	}
	return transcribe.Transcript{Segments: []transcribe.Segment{
		{Start: 0, End: 2.5, Text: "send one coin get two back"},
	}}, nil
}

type fakeClassifier struct {
	calls    int32
	lastMode string
	lastEv   classify.Evidence
	err      error
}

func (f *fakeClassifier) Classify(_ context.Context, mode string, frames []media.Frame, ev classify.Evidence) (classify.Verdict, error) {
	atomic.AddInt32(&f.calls, 1)
	f.lastMode = mode
	f.lastEv = ev
	if f.err != nil {
		return classify.Verdict{}, f.err
	}
	return classify.Verdict{
		Scam:       true,
		Confidence: 0.93,
		Reasoning:  "Promises doubled returns for an upfront payment.",
		Mode:       mode,
		Model:      "stub",
		FramesUsed: len(frames),
	}, nil
}

type fixture struct {
	cfg        *config.Config
	store      *queue.Store
	manager    *Manager
	resolver   *fakeResolver
	sampler    *fakeSampler
	extractor  *fakeExtractor
	transcribe *fakeTranscriber
	classifier *fakeClassifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	f := &fixture{
		cfg:        cfg,
		store:      store,
		resolver:   &fakeResolver{},
		sampler:    &fakeSampler{},
		extractor:  &fakeExtractor{},
		transcribe: &fakeTranscriber{},
		classifier: &fakeClassifier{},
	}
	svcs := &Services{
		Resolver:    f.resolver,
		Sampler:     f.sampler,
		Extractor:   f.extractor,
		Transcriber: f.transcribe,
		Classifier:  f.classifier,
		Sink:        report.NewFileSink(cfg.StagingDir()),
	}
	f.manager = NewManager(cfg, store, svcs, logging.NewNop())
	return f
}

func (f *fixture) run(t *testing.T, job *queue.Job) error {
	t.Helper()
	return f.manager.runJob(context.Background(), logging.NewNop(), job)
}

func (f *fixture) reload(t *testing.T, id int64) *queue.Job {
	t.Helper()
	job, err := f.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job == nil {
		t.Fatalf("job %d missing", id)
	}
	return job
}

func TestRunJobCompletesPipeline(t *testing.T) {
	f := newFixture(t)
	job := testsupport.NewJob(t, f.store, "https://example.com/watch?v=abc", config.ClassifierModeSampled)

	if err := f.run(t, job); err != nil {
		t.Fatalf("runJob: %v", err)
	}

	stored := f.reload(t, job.ID)
	if stored.Status != queue.StatusCompleted {
		t.Fatalf("status = %s, want completed", stored.Status)
	}
	for name, value := range map[string]string{
		"frames":     stored.FramesJSON,
		"detections": stored.DetectionsJSON,
		"transcript": stored.TranscriptJSON,
		"verdict":    stored.VerdictJSON,
	} {
		if value == "" {
			t.Errorf("%s output not persisted", name)
		}
	}
	if stored.ReportPath == "" {
		t.Fatal("report path not persisted")
	}
	if _, err := os.Stat(stored.ReportPath); err != nil {
		t.Fatalf("report file: %v", err)
	}
	if f.classifier.lastMode != config.ClassifierModeSampled {
		t.Errorf("classifier mode = %q", f.classifier.lastMode)
	}
	if !strings.Contains(f.classifier.lastEv.Timeline, "GUARANTEED RETURNS") {
		t.Errorf("timeline missing detection text: %q", f.classifier.lastEv.Timeline)
	}
	if !strings.Contains(f.classifier.lastEv.Transcript, "send one coin") {
		t.Errorf("transcript missing speech: %q", f.classifier.lastEv.Transcript)
	}
}

func TestRunJobSkipsPersistedStages(t *testing.T) {
	f := newFixture(t)
	job := testsupport.NewJob(t, f.store, "/videos/input.mp4", config.ClassifierModeSampled)

	frames, err := media.EncodeFrames([]media.Frame{{Index: 0, Sharpness: 80, Path: "frame_000000.png"}})
	if err != nil {
		t.Fatalf("EncodeFrames: %v", err)
	}
	detections, err := ocr.EncodeDetections([]ocr.Detection{{Text: "act now", Confidence: 0.9}})
	if err != nil {
		t.Fatalf("EncodeDetections: %v", err)
	}

	job.LocalPath = "/videos/input.mp4"
	job.FramesJSON = frames
	job.DetectionsJSON = detections
	if err := f.store.Update(context.Background(), job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := f.run(t, job); err != nil {
		t.Fatalf("runJob: %v", err)
	}

	if got := atomic.LoadInt32(&f.resolver.calls); got != 0 {
		t.Errorf("resolver called %d times on resumed job", got)
	}
	if got := atomic.LoadInt32(&f.sampler.calls); got != 0 {
		t.Errorf("sampler called %d times on resumed job", got)
	}
	if got := atomic.LoadInt32(&f.extractor.calls); got != 0 {
		t.Errorf("extractor called %d times on resumed job", got)
	}
	if got := atomic.LoadInt32(&f.transcribe.calls); got != 1 {
		t.Errorf("transcriber called %d times, want 1", got)
	}
	if got := atomic.LoadInt32(&f.classifier.calls); got != 1 {
		t.Errorf("classifier called %d times, want 1", got)
	}
	if f.reload(t, job.ID).Status != queue.StatusCompleted {
		t.Fatal("resumed job did not complete")
	}
}

func TestRunJobStopsAtCancelRequest(t *testing.T) {
	f := newFixture(t)
	job := testsupport.NewJob(t, f.store, "/videos/input.mp4", config.ClassifierModeSampled)
	job.Status = queue.StatusDownloading
	if err := f.store.Update(context.Background(), job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := f.store.RequestCancel(context.Background(), job.Token); err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}

	if err := f.run(t, job); err != nil {
		t.Fatalf("runJob: %v", err)
	}

	stored := f.reload(t, job.ID)
	if stored.Status != queue.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", stored.Status)
	}
	if got := atomic.LoadInt32(&f.resolver.calls); got != 0 {
		t.Errorf("resolver called %d times on cancelled job", got)
	}
}

func TestRunJobRecordsStageFailure(t *testing.T) {
	f := newFixture(t)
	job := testsupport.NewJob(t, f.store, "https://example.com/watch?v=abc", config.ClassifierModeSampled)
	f.resolver.err = services.Wrap(
		services.ErrSourceUnreadable, "download", "fetch", "yt-dlp exited 1", errors.New("exit status 1"))

	if err := f.run(t, job); err == nil {
		t.Fatal("expected runJob to return the stage error")
	}

	stored := f.reload(t, job.ID)
	if stored.Status != queue.StatusFailed {
		t.Fatalf("status = %s, want failed", stored.Status)
	}
	if !strings.Contains(stored.ErrorMessage, "yt-dlp exited 1") {
		t.Errorf("error message = %q", stored.ErrorMessage)
	}
	if got := atomic.LoadInt32(&f.sampler.calls); got != 0 {
		t.Errorf("sampler ran after download failure (%d calls)", got)
	}
}

func TestRunJobHolisticModeReachesClassifier(t *testing.T) {
	f := newFixture(t)
	job := testsupport.NewJob(t, f.store, "/videos/input.mp4", config.ClassifierModeHolistic)
	job.LocalPath = "/videos/input.mp4"
	if err := f.store.Update(context.Background(), job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := f.run(t, job); err != nil {
		t.Fatalf("runJob: %v", err)
	}
	if f.classifier.lastMode != config.ClassifierModeHolistic {
		t.Errorf("classifier mode = %q, want holistic", f.classifier.lastMode)
	}
}

func TestStatusSummaryReflectsQueue(t *testing.T) {
	f := newFixture(t)
	testsupport.NewJob(t, f.store, "/videos/a.mp4", config.ClassifierModeSampled)
	testsupport.NewJob(t, f.store, "/videos/b.mp4", config.ClassifierModeSampled)

	summary, err := f.manager.StatusSummary(context.Background())
	if err != nil {
		t.Fatalf("StatusSummary: %v", err)
	}
	if summary.Running {
		t.Error("manager reported running before Start")
	}
	if summary.QueueStats[queue.StatusPending] != 2 {
		t.Errorf("pending = %d, want 2", summary.QueueStats[queue.StatusPending])
	}
}

func TestTransitionRejectsBackwardMove(t *testing.T) {
	f := newFixture(t)
	job := testsupport.NewJob(t, f.store, "/videos/a.mp4", config.ClassifierModeSampled)
	job.Status = queue.StatusClassifying
	if err := f.store.Update(context.Background(), job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := f.manager.transition(context.Background(), job, queue.StatusSampling); err == nil {
		t.Fatal("expected backward transition to fail")
	}
}
