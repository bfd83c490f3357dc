package logging

import "strings"

// ProgressSampler throttles progress log lines to one per bucket crossing or
// stage change. Progress reporting to callers is not affected.
type ProgressSampler struct {
	bucketSize int
	lastStage  string
	lastBucket int
}

// NewProgressSampler returns a sampler emitting every bucketSize percent (default 10).
func NewProgressSampler(bucketSize int) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether percent in stage crosses into a new bucket.
// Negative percent means unknown and only stage changes are considered.
func (s *ProgressSampler) ShouldLog(stage string, percent int) bool {
	if s == nil {
		return true
	}
	stage = strings.TrimSpace(stage)
	emit := false
	if stage != "" && stage != s.lastStage {
		s.lastStage = stage
		s.lastBucket = -1
		emit = true
	}
	if percent >= 0 {
		if percent > 100 {
			percent = 100
		}
		bucket := percent / s.bucketSize
		if bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}

// Reset clears sampler state.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastStage = ""
	s.lastBucket = -1
}
