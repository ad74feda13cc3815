package workflow

import (
	"context"
	"log/slog"
	"os/exec"

	"github.com/JulesGR953/OptiScam-Framework/internal/classify"
	"github.com/JulesGR953/OptiScam-Framework/internal/config"
	"github.com/JulesGR953/OptiScam-Framework/internal/media"
	"github.com/JulesGR953/OptiScam-Framework/internal/ocr"
	"github.com/JulesGR953/OptiScam-Framework/internal/report"
	"github.com/JulesGR953/OptiScam-Framework/internal/source"
	"github.com/JulesGR953/OptiScam-Framework/internal/stage"
	"github.com/JulesGR953/OptiScam-Framework/internal/transcribe"
)

// Services bundles the domain services the pipeline stages depend on.
type Services struct {
	Resolver    SourceResolver
	Sampler     FrameSampler
	Extractor   TextExtractor
	Transcriber SpeechTranscriber
	Classifier  VerdictClassifier
	Sink        report.Sink

	healthChecks []func(context.Context) stage.Health
}

// SourceResolver resolves a submitted source to a local video.
type SourceResolver interface {
	Fetch(ctx context.Context, src, destDir string) (source.Resolved, error)
}

// FrameSampler retains sharp frames from a video.
type FrameSampler interface {
	Sample(ctx context.Context, videoPath, outDir string, opts media.SampleOptions) ([]media.Frame, error)
}

// TextExtractor reads on-screen text from frames.
type TextExtractor interface {
	ExtractFromFrames(ctx context.Context, frames []media.Frame) ([]ocr.Detection, error)
}

// SpeechTranscriber transcribes a video's audio track.
type SpeechTranscriber interface {
	Transcribe(ctx context.Context, videoPath, workDir string) (transcribe.Transcript, error)
}

// VerdictClassifier renders a scam verdict over frames and evidence.
type VerdictClassifier interface {
	Classify(ctx context.Context, mode string, frames []media.Frame, ev classify.Evidence) (classify.Verdict, error)
}

// NewServices wires the production services from configuration.
func NewServices(cfg *config.Config, logger *slog.Logger) *Services {
	enhancer := media.NewEnhancer(cfg.Enhance.ClipLimit, cfg.Enhance.TileGridSize)

	primary := ocr.NewPrimaryClient(ocr.EngineConfig{
		URL:            cfg.OCR.PrimaryURL,
		TimeoutSeconds: cfg.OCR.RequestTimeoutSeconds,
	}, nil)
	fallback := ocr.NewFallbackClient(ocr.EngineConfig{
		URL:            cfg.OCR.FallbackURL,
		TimeoutSeconds: cfg.OCR.RequestTimeoutSeconds,
	}, nil)

	vlm := classify.NewClient(classify.Config{
		BaseURL:        cfg.Classifier.BaseURL,
		Model:          cfg.Classifier.Model,
		APIKey:         cfg.Classifier.APIKey,
		TimeoutSeconds: cfg.Classifier.TimeoutSeconds,
	})

	svcs := &Services{
		Resolver: source.NewResolver(source.NewLocalProvider(), source.NewDownloader("")),
		Sampler:  media.NewSampler(enhancer, logger),
		Extractor: ocr.NewExtractor(
			primary, fallback, cfg.OCR.FallbackThreshold, logger),
		Transcriber: transcribe.NewService(transcribe.Config{
			Model:       cfg.Transcriber.Model,
			Language:    cfg.Transcriber.Language,
			CUDAEnabled: cfg.Transcriber.CUDAEnabled,
		}, ""),
		Classifier: classify.NewClassifier(
			vlm, cfg.Classifier.Model, cfg.Classifier.MaxFrames, logger),
		Sink: report.NewFileSink(cfg.StagingDir()),
	}

	svcs.healthChecks = []func(context.Context) stage.Health{
		binaryHealth("ffmpeg", transcribe.FFmpegCommand),
		binaryHealth("yt-dlp", source.YtDlpCommand),
		binaryHealth("whisperx", transcribe.UVXCommand),
		endpointHealth("ocr-primary", primary.HealthCheck),
		endpointHealth("ocr-fallback", fallback.HealthCheck),
		endpointHealth("classifier", vlm.HealthCheck),
	}
	return svcs
}

// HealthChecks reports the readiness of every external dependency.
func (s *Services) HealthChecks(ctx context.Context) []stage.Health {
	results := make([]stage.Health, 0, len(s.healthChecks))
	for _, check := range s.healthChecks {
		results = append(results, check(ctx))
	}
	return results
}

func binaryHealth(name, binary string) func(context.Context) stage.Health {
	return func(context.Context) stage.Health {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(name, binary+" not found in PATH")
		}
		return stage.Healthy(name)
	}
}

func endpointHealth(name string, check func(context.Context) error) func(context.Context) stage.Health {
	return func(ctx context.Context) stage.Health {
		if err := check(ctx); err != nil {
			return stage.Unhealthy(name, err.Error())
		}
		return stage.Healthy(name)
	}
}
