package main

import (
	"fmt"
	"strings"
	"testing"

	"encore/internal/api"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "running", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestJobStatusLabel(t *testing.T) {
	cases := map[string]string{
		"processing": "Processing",
		"ready":      "Ready",
		"error":      "Error",
		"":           "Unknown",
	}
	for in, want := range cases {
		if got := jobStatusLabel(in); got != want {
			t.Fatalf("jobStatusLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatOffset(t *testing.T) {
	cases := map[float64]string{
		0:      "0:00.00",
		2.5:    "0:02.50",
		62.25:  "1:02.25",
		-3:     "0:00.00",
		3599.9: "59:59.90",
	}
	for in, want := range cases {
		if got := formatOffset(in); got != want {
			t.Fatalf("formatOffset(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderJobTable(t *testing.T) {
	out := renderJobTable([]api.Job{
		{ID: "a1", Title: "Song", Status: "ready", Progress: 100, Lyrics: []api.Segment{{Text: "x"}}},
		{ID: "b2", Title: "Other", Status: "error", Progress: 12, Error: "separation: exited with code 2"},
	}, false)
	for _, want := range []string{"Ready", "1 lyric lines", "Error", "exited with code 2", "12%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}
