package ocr

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/JulesGR953/OptiScam-Framework/internal/logging"
	"github.com/JulesGR953/OptiScam-Framework/internal/media"
	"github.com/JulesGR953/OptiScam-Framework/internal/services"
)

// Engine detects and reads text regions in a frame image.
type Engine interface {
	DetectText(ctx context.Context, imagePath string) ([]Detection, error)
}

// RegionRecognizer re-reads text, either within a detected region or across a
// whole frame.
type RegionRecognizer interface {
	RecognizeRegion(ctx context.Context, imagePath string, region Region) (Reading, error)
	RecognizeImage(ctx context.Context, imagePath string) (Reading, error)
}

// Extractor coordinates the primary engine and the confidence-gated fallback.
type Extractor struct {
	primary   Engine
	fallback  RegionRecognizer
	threshold float64
	logger    *slog.Logger
}

// NewExtractor builds an Extractor. Readings below threshold are retried on
// the fallback recognizer.
func NewExtractor(primary Engine, fallback RegionRecognizer, threshold float64, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Extractor{
		primary:   primary,
		fallback:  fallback,
		threshold: threshold,
		logger:    logger,
	}
}

// ExtractFromFrames runs extraction over every frame and aggregates the
// detections in frame order, stamping each with its frame index and
// timestamp. Once the primary engine reports unavailable, the remaining
// frames of the batch go straight to the fallback recognizer.
func (e *Extractor) ExtractFromFrames(ctx context.Context, frames []media.Frame) ([]Detection, error) {
	detections := make([]Detection, 0)
	degraded := false
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		frameDetections, nowDegraded, err := e.extractFrame(ctx, frame.Path, degraded)
		if err != nil {
			return nil, err
		}
		degraded = nowDegraded
		for _, det := range frameDetections {
			det.FrameIndex = frame.Index
			det.Timestamp = frame.Timestamp
			detections = append(detections, det)
		}
	}
	return detections, nil
}

// ExtractFrame extracts text from a single frame image.
func (e *Extractor) ExtractFrame(ctx context.Context, imagePath string) ([]Detection, error) {
	detections, _, err := e.extractFrame(ctx, imagePath, false)
	return detections, err
}

// extractFrame runs one frame through the engines. The degraded flag skips
// the primary engine entirely; the returned flag reports whether the primary
// was (or already had been) found unavailable.
func (e *Extractor) extractFrame(ctx context.Context, imagePath string, degraded bool) ([]Detection, bool, error) {
	if !degraded {
		primaryDetections, err := e.primary.DetectText(ctx, imagePath)
		if err == nil {
			detections := e.refine(ctx, imagePath, primaryDetections)
			return detections, false, nil
		}
		if !errors.Is(err, services.ErrEngineUnavailable) || e.fallback == nil {
			return nil, false, err
		}
		e.logger.Warn("primary engine unavailable, using fallback recognition for the remaining frames",
			logging.Error(err),
		)
	}
	detections, err := e.fallbackOnly(ctx, imagePath)
	return detections, true, err
}

// refine re-reads low-confidence primary detections on the fallback
// recognizer, keeping the primary reading when the fallback fails or comes
// back empty.
func (e *Extractor) refine(ctx context.Context, imagePath string, primaryDetections []Detection) []Detection {
	results := make([]Detection, 0, len(primaryDetections))
	for _, det := range primaryDetections {
		det.Engine = EnginePrimary
		if e.fallback != nil && det.Confidence < e.threshold && det.Region != nil {
			reading, recErr := e.fallback.RecognizeRegion(ctx, imagePath, *det.Region)
			switch {
			case recErr != nil:
				e.logger.Warn("fallback recognition failed, keeping primary reading",
					logging.Error(recErr),
					logging.String("text", det.Text),
				)
			case strings.TrimSpace(reading.Text) != "":
				det.Text = reading.Text
				det.Confidence = reading.Confidence
				det.Engine = EngineFallback
			}
		}
		results = append(results, det)
	}
	return results
}

func (e *Extractor) fallbackOnly(ctx context.Context, imagePath string) ([]Detection, error) {
	reading, err := e.fallback.RecognizeImage(ctx, imagePath)
	if err != nil {
		return nil, services.Wrap(
			services.ErrEngineUnavailable, "extracting", "fallback recognition",
			"both text engines unavailable", err)
	}
	if strings.TrimSpace(reading.Text) == "" {
		return nil, nil
	}
	return []Detection{{
		Text:       reading.Text,
		Confidence: reading.Confidence,
		Engine:     EngineFallback,
	}}, nil
}
