package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrToolUnavailable     = errors.New("tool unavailable")
	ErrToolFailed          = errors.New("tool failed")
	ErrOutputNotFound      = errors.New("output not found")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrIO                  = errors.New("io failure")
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("not found")
)

// kinds maps each marker to the short label persisted alongside job failures.
// Stage markers come before tool markers so a transcription that failed because
// whisper exited nonzero still reads as transcription_failed.
var kinds = []struct {
	marker error
	kind   string
}{
	{ErrTranscriptionFailed, "transcription_failed"},
	{ErrToolUnavailable, "tool_unavailable"},
	{ErrToolFailed, "tool_failed"},
	{ErrOutputNotFound, "output_not_found"},
	{ErrIO, "io_failure"},
	{ErrValidation, "validation"},
	{ErrNotFound, "not_found"},
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ToolFailedError reports an external tool that ran but exited with a nonzero code.
type ToolFailedError struct {
	Tool string
	Code int
}

func (e *ToolFailedError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
}

// Is lets errors.Is(err, ErrToolFailed) match without an extra wrap.
func (e *ToolFailedError) Is(target error) bool {
	return target == ErrToolFailed
}

// ErrorDetails summarizes an error for persistence and API responses.
type ErrorDetails struct {
	Kind    string
	Message string
}

// Details classifies err against the known markers. Unknown errors are reported
// with kind "internal".
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: "internal", Message: strings.TrimSpace(err.Error())}
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			details.Kind = k.kind
			break
		}
	}
	return details
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
