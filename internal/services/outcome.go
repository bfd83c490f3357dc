package services

import (
	"encore/internal/runner"
)

// OutcomeError converts a failed process outcome into a marked error. A launch
// failure maps to ErrToolUnavailable and a nonzero exit to *ToolFailedError.
// It returns nil for a successful outcome.
func OutcomeError(stage, tool, operation string, outcome runner.Outcome, tail string) error {
	switch outcome.Kind {
	case runner.Success:
		return nil
	case runner.LaunchFailed:
		return Wrap(ErrToolUnavailable, stage, operation, tool+" could not be launched", outcome.Err)
	default:
		failed := &ToolFailedError{Tool: tool, Code: outcome.Code}
		if tail != "" {
			return Wrap(ErrToolFailed, stage, operation, tail, failed)
		}
		return Wrap(ErrToolFailed, stage, operation, "", failed)
	}
}
