// Package progress turns raw tool output lines into percentages.
package progress

import (
	"strconv"
	"strings"
	"unicode"
)

// Grammar maps one output line to a percentage, reporting false when the line
// carries none. Implementations must never panic on malformed input.
type Grammar func(line string) (int, bool)

// Percent reads the digits immediately before the first '%', skipping
// whitespace and progress-bar glyphs before them. This matches tqdm output
// such as "16%|█▌ | 12.6M/80.2M".
func Percent(line string) (int, bool) {
	idx := strings.IndexByte(line, '%')
	if idx <= 0 {
		return 0, false
	}
	head := strings.TrimRightFunc(line[:idx], unicode.IsSpace)
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return 0, false
	}
	token := fields[len(fields)-1]

	// Keep the trailing digit run so "▌16" or "|16" still read as 16.
	end := len(token)
	start := end
	for start > 0 && token[start-1] >= '0' && token[start-1] <= '9' {
		start--
	}
	if start == end || start != 0 && isWordByte(token[start-1]) {
		return 0, false
	}
	value, err := strconv.Atoi(token[start:end])
	if err != nil || value > 100 {
		return 0, false
	}
	return value, true
}

// Extract applies the default Percent grammar.
func Extract(line string) (int, bool) {
	return Percent(line)
}

func isWordByte(b byte) bool {
	return b == '_' || b == '.' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
