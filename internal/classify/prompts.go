package classify

import (
	"fmt"
	"strings"
)

// SystemPrompt frames the model as a scam analyst whose answer leads with
// the decision token.
const SystemPrompt = `You are an expert at detecting scam and fraud content in social media videos. ` +
	`You will be shown frames from a video together with its metadata, on-screen text, and spoken transcript. ` +
	`Begin your answer with exactly one word, Yes or No, then justify it.`

const verdictQuestion = "Is this video promoting a scam or fraudulent scheme? " +
	"Answer Yes or No, followed by your reasoning in 4-5 sentences."

// Evidence bundles the textual inputs shown to the model alongside frames.
type Evidence struct {
	Title       string
	Description string
	Timeline    string
	Transcript  string
}

// BuildSampledPrompt renders the user prompt for sampled mode, where the
// frame subset is accompanied by the per-second text timeline.
func BuildSampledPrompt(ev Evidence) string {
	var b strings.Builder
	writeMetadata(&b, ev)
	if ev.Timeline != "" {
		fmt.Fprintf(&b, "On-screen text timeline:\n%s\n\n", ev.Timeline)
	}
	writeTranscript(&b, ev)
	b.WriteString(verdictQuestion)
	return b.String()
}

// BuildHolisticPrompt renders the user prompt for holistic mode, where
// sparse whole-video frames are accompanied by the full extracted text.
func BuildHolisticPrompt(ev Evidence) string {
	var b strings.Builder
	writeMetadata(&b, ev)
	if ev.Timeline != "" {
		fmt.Fprintf(&b, "All on-screen text:\n%s\n\n", ev.Timeline)
	}
	writeTranscript(&b, ev)
	b.WriteString("Consider the video as a whole, including pacing and progression across the frames.\n")
	b.WriteString(verdictQuestion)
	return b.String()
}

func writeMetadata(b *strings.Builder, ev Evidence) {
	if title := strings.TrimSpace(ev.Title); title != "" {
		fmt.Fprintf(b, "Video title: %s\n", title)
	}
	if desc := strings.TrimSpace(ev.Description); desc != "" {
		fmt.Fprintf(b, "Video description: %s\n", desc)
	}
	if ev.Title != "" || ev.Description != "" {
		b.WriteString("\n")
	}
}

func writeTranscript(b *strings.Builder, ev Evidence) {
	if transcript := strings.TrimSpace(ev.Transcript); transcript != "" {
		fmt.Fprintf(b, "Spoken transcript:\n%s\n\n", transcript)
	}
}
