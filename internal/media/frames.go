package media

import (
	"encoding/json"
	"fmt"
)

// Frame is one retained video frame with its sampling metadata.
type Frame struct {
	Index     int     `json:"index"`
	Timestamp float64 `json:"timestamp"`
	Sharpness float64 `json:"sharpness"`
	Path      string  `json:"path"`
}

// EncodeFrames serializes frames for queue persistence.
func EncodeFrames(frames []Frame) (string, error) {
	data, err := json.Marshal(frames)
	if err != nil {
		return "", fmt.Errorf("marshal frames: %w", err)
	}
	return string(data), nil
}

// DecodeFrames restores frames persisted by EncodeFrames.
func DecodeFrames(raw string) ([]Frame, error) {
	if raw == "" {
		return nil, nil
	}
	var frames []Frame
	if err := json.Unmarshal([]byte(raw), &frames); err != nil {
		return nil, fmt.Errorf("unmarshal frames: %w", err)
	}
	return frames, nil
}
