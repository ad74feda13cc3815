// Package report assembles the final analysis artifact for a completed job.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/JulesGR953/OptiScam-Framework/internal/classify"
	"github.com/JulesGR953/OptiScam-Framework/internal/media"
	"github.com/JulesGR953/OptiScam-Framework/internal/ocr"
	"github.com/JulesGR953/OptiScam-Framework/internal/queue"
	"github.com/JulesGR953/OptiScam-Framework/internal/transcribe"
)

// Report is the full analysis outcome for one video.
type Report struct {
	Token       string              `json:"token"`
	Source      string              `json:"source"`
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Mode        string              `json:"mode"`
	GeneratedAt time.Time           `json:"generated_at"`
	Verdict     classify.Verdict    `json:"verdict"`
	Frames      []media.Frame       `json:"frames"`
	Detections  []ocr.Detection     `json:"detections"`
	Timeline    []ocr.TimelineEntry `json:"timeline"`
	Transcript  transcribe.Transcript `json:"transcript"`
}

// Assemble builds a report from a job's persisted stage outputs.
func Assemble(job *queue.Job) (Report, error) {
	var report Report
	if job == nil {
		return report, fmt.Errorf("assemble report: job is nil")
	}

	frames, err := media.DecodeFrames(job.FramesJSON)
	if err != nil {
		return report, fmt.Errorf("assemble report: %w", err)
	}
	detections, err := ocr.DecodeDetections(job.DetectionsJSON)
	if err != nil {
		return report, fmt.Errorf("assemble report: %w", err)
	}
	transcript, err := transcribe.Decode(job.TranscriptJSON)
	if err != nil {
		return report, fmt.Errorf("assemble report: %w", err)
	}
	verdict, err := classify.DecodeVerdict(job.VerdictJSON)
	if err != nil {
		return report, fmt.Errorf("assemble report: %w", err)
	}

	return Report{
		Token:       job.Token,
		Source:      job.Source,
		Title:       job.Title,
		Description: job.Description,
		Mode:        job.Mode,
		GeneratedAt: time.Now().UTC(),
		Verdict:     verdict,
		Frames:      frames,
		Detections:  detections,
		Timeline:    ocr.BuildTimeline(detections),
		Transcript:  transcript,
	}, nil
}

// Sink persists a finished report and returns where it landed.
type Sink interface {
	Write(ctx context.Context, report Report) (string, error)
}

// FileSink writes reports as JSON files under a base directory, one
// subdirectory per job token.
type FileSink struct {
	baseDir string
}

// NewFileSink constructs a FileSink rooted at baseDir.
func NewFileSink(baseDir string) *FileSink {
	return &FileSink{baseDir: baseDir}
}

// Write serializes the report to <baseDir>/<token>/report.json.
func (s *FileSink) Write(ctx context.Context, report Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Join(s.baseDir, report.Token)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	path := filepath.Join(dir, "report.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

// Load reads a report back from disk.
func Load(path string) (Report, error) {
	var report Report
	data, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("read report: %w", err)
	}
	if err := json.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("parse report: %w", err)
	}
	return report, nil
}
