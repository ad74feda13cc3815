package ocr

import (
	"encoding/json"
	"fmt"
)

// Region is a quadrilateral text region in frame pixel coordinates, ordered
// clockwise from the top-left corner.
type Region [4][2]float64

// Detection is one piece of recognized on-screen text.
type Detection struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Region     *Region `json:"region,omitempty"`
	FrameIndex int     `json:"frame_index"`
	Timestamp  float64 `json:"timestamp"`
	Engine     string  `json:"engine"`
}

// Reading is a bare recognition result without geometry.
type Reading struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Engine names recorded on detections.
const (
	EnginePrimary  = "primary"
	EngineFallback = "fallback"
)

// EncodeDetections serializes detections for queue persistence.
func EncodeDetections(detections []Detection) (string, error) {
	data, err := json.Marshal(detections)
	if err != nil {
		return "", fmt.Errorf("marshal detections: %w", err)
	}
	return string(data), nil
}

// DecodeDetections restores detections persisted by EncodeDetections.
func DecodeDetections(raw string) ([]Detection, error) {
	if raw == "" {
		return nil, nil
	}
	var detections []Detection
	if err := json.Unmarshal([]byte(raw), &detections); err != nil {
		return nil, fmt.Errorf("unmarshal detections: %w", err)
	}
	return detections, nil
}
