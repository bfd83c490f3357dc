package api

import (
	"path"
	"time"

	"encore/internal/deps"
	"encore/internal/pipeline"
	"encore/internal/preflight"
	"encore/internal/recording"
)

// MediaURL turns a storage-relative reference into its retrieval URL.
func MediaURL(ref string) string {
	if ref == "" {
		return ""
	}
	return MediaPrefix + path.Clean(ref)
}

// FromJobView converts a job to its API representation.
func FromJobView(v pipeline.JobView) Job {
	dto := Job{
		ID:              v.ID,
		Title:           v.Title,
		Status:          string(v.Status),
		Progress:        v.Progress,
		InstrumentalURL: MediaURL(v.InstrumentalRef),
		Error:           v.Error,
		CreatedAt:       formatTime(v.CreatedAt),
	}
	if v.Lyrics != nil {
		dto.Lyrics = make([]Segment, 0, len(v.Lyrics))
		for _, seg := range v.Lyrics {
			dto.Lyrics = append(dto.Lyrics, Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
		}
	}
	return dto
}

// FromJobViews converts a job listing. The result is never nil.
func FromJobViews(views []pipeline.JobView) []Job {
	out := make([]Job, 0, len(views))
	for _, v := range views {
		out = append(out, FromJobView(v))
	}
	return out
}

// FromRecordingViews converts a recording listing. The result is never nil.
func FromRecordingViews(views []recording.View) []Recording {
	out := make([]Recording, 0, len(views))
	for _, v := range views {
		out = append(out, Recording{
			ID:        v.ID,
			Title:     v.Title,
			Filename:  v.Filename,
			URL:       MediaURL(v.Ref),
			JobID:     v.JobID,
			Duration:  v.Duration,
			CreatedAt: formatTime(v.CreatedAt),
		})
	}
	return out
}

// FromDependencies converts dependency checks.
func FromDependencies(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

// FromPreflight converts storage checks.
func FromPreflight(results []preflight.Result) []CheckResult {
	out := make([]CheckResult, 0, len(results))
	for _, r := range results {
		out = append(out, CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
