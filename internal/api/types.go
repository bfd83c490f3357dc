package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// MediaPrefix is the URL path under which storage-relative references are served.
const MediaPrefix = "/api/media/"

// UserHeader carries the caller identity on every job and recording request.
const UserHeader = "X-Encore-User"

// RequestIDHeader carries the correlation id assigned to a request.
const RequestIDHeader = "X-Request-ID"

// Segment is one time-aligned lyric line.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Job describes a job in a transport-friendly format.
type Job struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	Progress        int       `json:"progress"`
	InstrumentalURL string    `json:"instrumentalUrl,omitempty"`
	Lyrics          []Segment `json:"lyrics,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       string    `json:"createdAt,omitempty"`
}

// JobListResponse wraps the job listing.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// Recording describes a processed recording.
type Recording struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Filename  string   `json:"filename"`
	URL       string   `json:"url"`
	JobID     string   `json:"jobId,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
}

// RecordingListResponse wraps the recording listing.
type RecordingListResponse struct {
	Recordings []Recording `json:"recordings"`
}

// SubmitResponse acknowledges an accepted job or recording.
type SubmitResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult mirrors one storage preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	DatabasePath string             `json:"databasePath"`
	LockFilePath string             `json:"lockFilePath"`
	StorageRoot  string             `json:"storageRoot"`
	Jobs         map[string]int     `json:"jobs"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Checks       []CheckResult      `json:"checks"`
}
