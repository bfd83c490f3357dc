package store

import "time"

// Status is the lifecycle state of a job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// Segment is one time-aligned lyric line.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Job is one submitted source file moving through separation and transcription.
type Job struct {
	ID               string
	UserID           string
	Title            string
	SourcePath       string
	Status           Status
	Progress         int
	InstrumentalPath string
	Lyrics           []Segment
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Recording is a processed vocal take, optionally tied to a job.
type Recording struct {
	ID        string
	UserID    string
	JobID     string
	Title     string
	Filename  string
	Duration  *float64
	CreatedAt time.Time
}
