package ocr

import (
	"fmt"
	"strings"
)

// TimelineEntry groups text seen during one second of video.
type TimelineEntry struct {
	Second int      `json:"second"`
	Texts  []string `json:"texts"`
}

// BuildTimeline buckets detections into integer-second entries. Entries
// appear in order of first detection and texts keep their detection order;
// duplicate texts within a second are collapsed.
func BuildTimeline(detections []Detection) []TimelineEntry {
	var timeline []TimelineEntry
	index := make(map[int]int)
	seen := make(map[int]map[string]struct{})

	for _, det := range detections {
		text := strings.TrimSpace(det.Text)
		if text == "" {
			continue
		}
		second := int(det.Timestamp)

		pos, ok := index[second]
		if !ok {
			pos = len(timeline)
			index[second] = pos
			timeline = append(timeline, TimelineEntry{Second: second})
			seen[second] = make(map[string]struct{})
		}
		if _, dup := seen[second][text]; dup {
			continue
		}
		seen[second][text] = struct{}{}
		timeline[pos].Texts = append(timeline[pos].Texts, text)
	}
	return timeline
}

// FormatTimeline renders a timeline as prompt-ready lines, one second per
// line.
func FormatTimeline(timeline []TimelineEntry) string {
	if len(timeline) == 0 {
		return ""
	}
	var b strings.Builder
	for _, entry := range timeline {
		fmt.Fprintf(&b, "[%ds] %s\n", entry.Second, strings.Join(entry.Texts, " | "))
	}
	return strings.TrimRight(b.String(), "\n")
}
