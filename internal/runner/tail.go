package runner

import "strings"

// Tail keeps the last few output lines of a process for error messages.
type Tail struct {
	limit int
	lines []string
}

// NewTail returns a Tail holding at most limit non-empty lines.
func NewTail(limit int) *Tail {
	if limit <= 0 {
		limit = 5
	}
	return &Tail{limit: limit}
}

// Add records line, discarding blank lines.
func (t *Tail) Add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if len(t.lines) == t.limit {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:t.limit-1]
	}
	t.lines = append(t.lines, line)
}

// String joins the retained lines with " | ".
func (t *Tail) String() string {
	return strings.Join(t.lines, " | ")
}
