package classify

import (
	"encoding/json"
	"fmt"
	"math"
)

// Verdict is the classification outcome for one video.
type Verdict struct {
	Scam       bool    `json:"scam"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Mode       string  `json:"mode"`
	Model      string  `json:"model"`
	FramesUsed int     `json:"frames_used"`
}

// DecisionProbability converts Yes/No first-token logits into a verdict.
// The returned confidence is the softmax probability of the chosen answer,
// so it always lies in [0.5, 1].
func DecisionProbability(logitYes, logitNo float64) (scam bool, confidence float64) {
	// Subtract the max before exponentiating for numerical stability.
	m := math.Max(logitYes, logitNo)
	expYes := math.Exp(logitYes - m)
	expNo := math.Exp(logitNo - m)
	pYes := expYes / (expYes + expNo)

	if pYes >= 0.5 {
		return true, pYes
	}
	return false, 1 - pYes
}

// Encode serializes the verdict for queue persistence.
func (v Verdict) Encode() (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal verdict: %w", err)
	}
	return string(data), nil
}

// DecodeVerdict restores a verdict persisted by Encode.
func DecodeVerdict(raw string) (Verdict, error) {
	var v Verdict
	if raw == "" {
		return v, nil
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("unmarshal verdict: %w", err)
	}
	return v, nil
}
