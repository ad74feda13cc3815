package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/JulesGR953/OptiScam-Framework/internal/logging"
	"github.com/JulesGR953/OptiScam-Framework/internal/services"
)

// SampleOptions controls one sampling pass.
type SampleOptions struct {
	// Stride is the interval in frames between candidates.
	Stride int
	// MaxFrames bounds the retained set; zero means unbounded.
	MaxFrames int
	// SharpnessThreshold is the minimum Laplacian variance for retention.
	SharpnessThreshold float64
	// FilterEnabled toggles the sharpness gate.
	FilterEnabled bool
}

// Sampler walks a video and retains sharp, enhanced frames.
type Sampler struct {
	enhancer *Enhancer
	logger   *slog.Logger
}

// NewSampler constructs a Sampler writing enhanced frames via the given
// Enhancer.
func NewSampler(enhancer *Enhancer, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sampler{enhancer: enhancer, logger: logger}
}

// Sample decodes the video at videoPath, scores candidates at the configured
// stride, and writes the selected frames into outDir. The returned frames are
// ordered by timestamp.
func (s *Sampler) Sample(ctx context.Context, videoPath, outDir string, opts SampleOptions) ([]Frame, error) {
	if opts.Stride <= 0 {
		opts.Stride = 1
	}

	candidates, fps, err := s.scoreCandidates(ctx, videoPath, opts.Stride)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, services.Wrap(
			services.ErrSourceUnreadable, "sampling", "decode video",
			fmt.Sprintf("no decodable frames in %s", videoPath), nil)
	}

	selected := candidates
	if opts.FilterEnabled {
		selected = SelectSharp(candidates, opts.SharpnessThreshold)
	}
	selected = SubsampleEven(selected, opts.MaxFrames)

	s.logger.Info("frames selected",
		logging.Int("candidates", len(candidates)),
		logging.Int("selected", len(selected)),
		logging.Float64("fps", fps),
	)

	if err := s.writeSelected(ctx, videoPath, outDir, selected); err != nil {
		return nil, err
	}
	return selected, nil
}

func (s *Sampler) scoreCandidates(ctx context.Context, videoPath string, stride int) ([]Frame, float64, error) {
	capture, err := gocv.OpenVideoCapture(videoPath)
	if err != nil {
		return nil, 0, services.Wrap(
			services.ErrSourceUnreadable, "sampling", "open video",
			fmt.Sprintf("cannot open %s", videoPath), err)
	}
	defer capture.Close()

	fps := capture.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = 30
	}

	frame := gocv.NewMat()
	defer frame.Close()

	var candidates []Frame
	index := -1
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if !capture.Read(&frame) {
			break
		}
		index++
		if frame.Empty() || index%stride != 0 {
			continue
		}
		candidates = append(candidates, Frame{
			Index:     index,
			Timestamp: float64(index) / fps,
			Sharpness: LaplacianVariance(frame),
		})
	}
	return candidates, fps, nil
}

func (s *Sampler) writeSelected(ctx context.Context, videoPath, outDir string, selected []Frame) error {
	if len(selected) == 0 {
		return nil
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create frame dir: %w", err)
	}

	wanted := make(map[int]int, len(selected))
	for i, frame := range selected {
		wanted[frame.Index] = i
	}

	capture, err := gocv.OpenVideoCapture(videoPath)
	if err != nil {
		return services.Wrap(
			services.ErrSourceUnreadable, "sampling", "reopen video",
			fmt.Sprintf("cannot reopen %s", videoPath), err)
	}
	defer capture.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	remaining := len(wanted)
	index := -1
	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !capture.Read(&frame) {
			break
		}
		index++
		pos, ok := wanted[index]
		if !ok || frame.Empty() {
			continue
		}

		if s.enhancer != nil {
			if err := s.enhancer.Apply(&frame); err != nil {
				return fmt.Errorf("enhance frame %d: %w", index, err)
			}
		}

		path := filepath.Join(outDir, fmt.Sprintf("frame_%06d.png", index))
		if !gocv.IMWrite(path, frame) {
			return fmt.Errorf("write frame %d to %s", index, path)
		}
		selected[pos].Path = path
		remaining--
	}

	if remaining > 0 {
		return services.Wrap(
			services.ErrSourceUnreadable, "sampling", "extract frames",
			fmt.Sprintf("%d selected frames missing on re-read of %s", remaining, videoPath), nil)
	}
	return nil
}
