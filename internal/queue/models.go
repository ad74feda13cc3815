package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an analysis job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusDownloading  Status = "downloading"
	StatusSampling     Status = "sampling"
	StatusExtracting   Status = "extracting"
	StatusTranscribing Status = "transcribing"
	StatusClassifying  Status = "classifying"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusDownloading,
	StatusSampling,
	StatusExtracting,
	StatusTranscribing,
	StatusClassifying,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusDownloading:  {},
	StatusSampling:     {},
	StatusExtracting:   {},
	StatusTranscribing: {},
	StatusClassifying:  {},
}

// statusRank orders the pipeline so transitions can be checked for
// one-directionality. Terminal states share the top rank.
var statusRank = map[Status]int{
	StatusPending:      0,
	StatusDownloading:  1,
	StatusSampling:     2,
	StatusExtracting:   3,
	StatusTranscribing: 4,
	StatusClassifying:  5,
	StatusCompleted:    6,
	StatusFailed:       6,
	StatusCancelled:    6,
}

// Job represents a single video analysis persisted in SQLite.
type Job struct {
	ID              int64
	Token           string
	Source          string // path or URL as submitted
	LocalPath       string // resolved local file once available
	Title           string
	Description     string
	Mode            string // classification mode requested at submission
	Status          Status
	ErrorMessage    string
	CancelRequested bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastHeartbeat   *time.Time

	// Stage outputs, appended in pipeline order as stages complete.
	FramesJSON     string
	DetectionsJSON string
	TranscriptJSON string
	VerdictJSON    string
	ReportPath     string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing reports whether the job is mid-stage.
func (j Job) IsProcessing() bool {
	_, ok := processingStatuses[j.Status]
	return ok
}

// IsTerminal reports whether no further mutation is permitted.
func (j Job) IsTerminal() bool {
	return IsTerminalStatus(j.Status)
}

// IsTerminalStatus reports whether a status is terminal.
func IsTerminalStatus(status Status) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// CanTransition reports whether moving from one status to another respects
// the one-directional pipeline order. Failure and cancellation are reachable
// from any non-terminal status; every other move must advance to the
// immediately next stage, so a job cannot reach completed without passing
// through classifying.
func CanTransition(from, to Status) bool {
	fromRank, okFrom := statusRank[from]
	toRank, okTo := statusRank[to]
	if !okFrom || !okTo {
		return false
	}
	if IsTerminalStatus(from) {
		return false
	}
	switch to {
	case StatusFailed, StatusCancelled:
		return true
	default:
		return toRank == fromRank+1
	}
}

// SetFailed marks the job as failed with the given error message.
func (j *Job) SetFailed(message string) {
	j.Status = StatusFailed
	j.ErrorMessage = message
	j.LastHeartbeat = nil
}

// SetCancelled marks the job as cancelled. Partial results stay persisted but
// the job is terminal.
func (j *Job) SetCancelled() {
	j.Status = StatusCancelled
	j.LastHeartbeat = nil
}

// Stats aggregates job counts per status.
type Stats map[Status]int
