package transcribe

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Word is one aligned word within a segment.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start,omitempty"`
	End   float64 `json:"end,omitempty"`
	Score float64 `json:"score,omitempty"`
}

// Segment is one timed span of transcribed speech. Words carry the per-word
// alignment when the transcriber emits it.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words,omitempty"`
}

// Transcript is the full speech content of a video.
type Transcript struct {
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

// Empty reports whether the transcript carries no speech.
func (t Transcript) Empty() bool {
	for _, seg := range t.Segments {
		if strings.TrimSpace(seg.Text) != "" {
			return false
		}
	}
	return true
}

// FullText joins segment texts in order.
func (t Transcript) FullText() string {
	var parts []string
	for _, seg := range t.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Normalize orders segments by start time and clamps overlapping spans so
// each segment ends no later than the next begins.
func (t *Transcript) Normalize() {
	sort.SliceStable(t.Segments, func(i, j int) bool {
		return t.Segments[i].Start < t.Segments[j].Start
	})
	for i := 0; i < len(t.Segments)-1; i++ {
		if t.Segments[i].End > t.Segments[i+1].Start {
			t.Segments[i].End = t.Segments[i+1].Start
		}
	}
}

// Encode serializes the transcript for queue persistence.
func (t Transcript) Encode() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}
	return string(data), nil
}

// Decode restores a transcript persisted by Encode.
func Decode(raw string) (Transcript, error) {
	var t Transcript
	if raw == "" {
		return t, nil
	}
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return t, fmt.Errorf("unmarshal transcript: %w", err)
	}
	return t, nil
}
