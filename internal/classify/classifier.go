package classify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JulesGR953/OptiScam-Framework/internal/config"
	"github.com/JulesGR953/OptiScam-Framework/internal/logging"
	"github.com/JulesGR953/OptiScam-Framework/internal/media"
	"github.com/JulesGR953/OptiScam-Framework/internal/services"
)

// Decider renders a calibrated Yes/No decision over frames and a prompt.
type Decider interface {
	Decide(ctx context.Context, imagePaths []string, userPrompt string) (Decision, error)
}

// Classifier assembles evidence into a prompt and records the verdict.
type Classifier struct {
	decider   Decider
	model     string
	maxFrames int
	logger    *slog.Logger
}

// NewClassifier builds a Classifier over the given decider. maxFrames bounds
// how many frames are attached to a single request.
func NewClassifier(decider Decider, model string, maxFrames int, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	if maxFrames <= 0 {
		maxFrames = 6
	}
	return &Classifier{
		decider:   decider,
		model:     model,
		maxFrames: maxFrames,
		logger:    logger,
	}
}

// Classify runs one verdict request in the given mode.
func (c *Classifier) Classify(ctx context.Context, mode string, frames []media.Frame, ev Evidence) (Verdict, error) {
	var prompt string
	switch mode {
	case config.ClassifierModeSampled:
		prompt = BuildSampledPrompt(ev)
	case config.ClassifierModeHolistic:
		prompt = BuildHolisticPrompt(ev)
	default:
		return Verdict{}, services.Wrap(
			services.ErrConfiguration, "classifying", "classify",
			fmt.Sprintf("unknown classification mode %q", mode), nil)
	}

	selected := media.SubsampleEven(frames, c.maxFrames)
	imagePaths := make([]string, 0, len(selected))
	for _, frame := range selected {
		if frame.Path != "" {
			imagePaths = append(imagePaths, frame.Path)
		}
	}

	c.logger.Info("requesting verdict",
		logging.String("mode", mode),
		logging.Int("frames", len(imagePaths)),
	)

	decision, err := c.decider.Decide(ctx, imagePaths, prompt)
	if err != nil {
		return Verdict{}, err
	}

	return Verdict{
		Scam:       decision.Scam,
		Confidence: decision.Confidence,
		Reasoning:  decision.Reasoning,
		Mode:       mode,
		Model:      c.model,
		FramesUsed: len(imagePaths),
	}, nil
}
