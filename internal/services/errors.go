package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers used to classify stage failures. Wrap tags errors with one
// of these so the workflow manager and the API can report a stable error kind.
var (
	// ErrSourceUnreadable marks input that cannot be decoded. Fatal, no retry.
	ErrSourceUnreadable = errors.New("source unreadable")
	// ErrEngineUnavailable marks a lost external engine. Stages degrade to a
	// fallback path where one exists; otherwise the job fails.
	ErrEngineUnavailable = errors.New("engine unavailable")
	// ErrUnparseableVerdict marks classifier output that violated the
	// decision-token contract. Fatal; the job never guesses a verdict.
	ErrUnparseableVerdict = errors.New("unparseable verdict")
	// ErrTimeout marks a stage that exceeded its deadline. Fatal, no retry.
	ErrTimeout = errors.New("timeout")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks everything else.
	ErrTransient = errors.New("transient failure")
)

// StageError carries the stage context for a classified failure.
type StageError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Cause     error
}

func (e *StageError) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Marker, detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Marker, detail)
}

func (e *StageError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Marker, e.Cause}
	}
	return []error{e.Marker}
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &StageError{Marker: marker, Stage: stage, Operation: operation, Message: message, Cause: err}
}

// ErrorDetails describes a failure for structured logging and API payloads.
type ErrorDetails struct {
	Kind      string
	Stage     string
	Operation string
	Message   string
	Cause     error
}

// Details extracts structured failure context from an error chain.
func Details(err error) ErrorDetails {
	details := ErrorDetails{Kind: Kind(err)}
	if err == nil {
		return details
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		details.Stage = stageErr.Stage
		details.Operation = stageErr.Operation
		details.Message = buildDetail(stageErr.Stage, stageErr.Operation, stageErr.Message)
		details.Cause = stageErr.Cause
		return details
	}
	details.Message = err.Error()
	return details
}

// Kind maps an error to its taxonomy name. The empty string means no error.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceUnreadable):
		return "source_unreadable"
	case errors.Is(err, ErrEngineUnavailable):
		return "engine_unavailable"
	case errors.Is(err, ErrUnparseableVerdict):
		return "unparseable_verdict"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "transient"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
