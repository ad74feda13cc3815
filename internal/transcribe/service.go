package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	langpkg "github.com/JulesGR953/OptiScam-Framework/internal/language"
)

// Config captures runtime settings for WhisperX operations.
type Config struct {
	// Model is the WhisperX model to use (e.g., "tiny", "large-v3").
	Model string
	// Language is an optional hint; empty lets WhisperX detect it.
	Language string
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
}

// WhisperX configuration constants.
const (
	DefaultModel   = "tiny"
	CUDAIndexURL   = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL   = "https://pypi.org/simple"
	BatchSize      = "4"
	OutputFormat   = "json"
	CPUDevice      = "cpu"
	CUDADevice     = "cuda"
	CPUComputeType = "float32"
)

// Command names for external tools.
const (
	UVXCommand    = "uvx"
	FFmpegCommand = "ffmpeg"
)

// Service runs WhisperX transcription for analysis jobs.
type Service struct {
	cfg           Config
	ffmpegBinary  string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a transcription service with the given configuration.
func NewService(cfg Config, ffmpegBinary string) *Service {
	if ffmpegBinary == "" {
		ffmpegBinary = FFmpegCommand
	}
	return &Service{cfg: cfg, ffmpegBinary: ffmpegBinary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Transcribe extracts the audio track of a video and transcribes it. Videos
// without audio return an empty transcript.
func (s *Service) Transcribe(ctx context.Context, videoPath, workDir string) (Transcript, error) {
	var transcript Transcript

	if videoPath == "" {
		return transcript, fmt.Errorf("transcribe: video path required")
	}
	if workDir == "" {
		return transcript, fmt.Errorf("transcribe: work dir required")
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return transcript, fmt.Errorf("transcribe: ensure work dir: %w", err)
	}

	audioPath := filepath.Join(workDir, "audio.wav")
	if err := s.extractAudio(ctx, videoPath, audioPath); err != nil {
		if errors.Is(err, ErrNoAudio) {
			return Transcript{}, nil
		}
		return transcript, err
	}

	args := s.buildArgs(audioPath, workDir)
	if err := s.run(ctx, UVXCommand, args...); err != nil {
		return transcript, fmt.Errorf("whisperx: %w", err)
	}

	jsonPath := filepath.Join(workDir, "audio.json")
	transcript, err := LoadTranscript(jsonPath)
	if err != nil {
		return transcript, fmt.Errorf("transcribe: %w", err)
	}
	transcript.Normalize()
	return transcript, nil
}

func (s *Service) extractAudio(ctx context.Context, source, dest string) error {
	if s.commandRunner != nil {
		args := []string{
			"-y", "-hide_banner", "-loglevel", "error",
			"-i", source, "-map", "0:a:0", "-vn", "-sn", "-dn",
			"-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le", dest,
		}
		return s.commandRunner(ctx, s.ffmpegBinary, args...)
	}
	return ExtractAudio(ctx, s.ffmpegBinary, source, dest)
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Torch 2.6 changed torch.load default to weights_only=true, breaking
	// WhisperX checkpoint loading. Force legacy behavior.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (s *Service) buildArgs(source, outputDir string) []string {
	args := make([]string, 0, 24)

	if s.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	model := s.cfg.Model
	if model == "" {
		model = DefaultModel
	}

	args = append(args,
		"whisperx",
		source,
		"--model", model,
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
	)

	if lang := langpkg.ToISO2(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	if s.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}

	return args
}

// whisperXPayload is the JSON structure from WhisperX output.
type whisperXPayload struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// LoadTranscript loads a transcript from a WhisperX JSON file.
func LoadTranscript(jsonPath string) (Transcript, error) {
	var transcript Transcript
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return transcript, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return transcript, fmt.Errorf("parse whisperx json: %w", err)
	}
	transcript.Language = payload.Language
	transcript.Segments = payload.Segments
	return transcript, nil
}
