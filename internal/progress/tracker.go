package progress

import "sync"

// Tracker applies percentages monotonically: a value is accepted only when it
// is strictly greater than the last accepted one. Values are clamped to 0..100.
// The zero value starts at 0.
type Tracker struct {
	mu      sync.Mutex
	current int
}

// NewTracker returns a tracker that already sits at start.
func NewTracker(start int) *Tracker {
	return &Tracker{current: max(0, min(start, 100))}
}

// Observe reports whether p advances the tracker.
func (t *Tracker) Observe(p int) bool {
	p = max(0, min(p, 100))
	t.mu.Lock()
	defer t.mu.Unlock()
	if p <= t.current {
		return false
	}
	t.current = p
	return true
}

// Current returns the highest accepted percentage.
func (t *Tracker) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}
