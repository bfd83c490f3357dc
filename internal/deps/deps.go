// Package deps reports which external tools encore can find.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"encore/internal/config"
)

// Requirement defines an external dependency encore relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Requirements lists the tools the configured pipelines invoke.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "demucs", Command: cfg.Separation.Binary, Description: "Required for vocal separation"},
		{Name: "whisper", Command: cfg.Transcription.Binary, Description: "Required for lyric transcription"},
		{Name: "ffmpeg", Command: cfg.FFmpeg.Binary, Description: "Denoises and mixes recordings; failures fall back to the raw take", Optional: true},
		{Name: "ffprobe", Command: cfg.FFmpeg.FFprobeBinary, Description: "Reports recording durations", Optional: true},
	}
}

// Check evaluates every configured requirement.
func Check(cfg *config.Config) []Status {
	return CheckBinaries(Requirements(cfg))
}

// MissingRequired returns the names of unavailable non-optional tools.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, st := range statuses {
		if !st.Available && !st.Optional {
			missing = append(missing, st.Name)
		}
	}
	return missing
}
