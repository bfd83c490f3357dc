package demucs_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"encore/internal/services"
	"encore/internal/services/demucs"
	"encore/internal/testsupport"
)

func TestArgsMatchTwoStemInvocation(t *testing.T) {
	client := demucs.New("", "")
	got := client.Args("/media/uploads/u/1_song.wav", "/media/instrumentals")
	want := []string{"-n", "htdemucs", "--two-stems=vocals", "/media/uploads/u/1_song.wav", "-o", "/media/instrumentals"}
	if !slices.Equal(got, want) {
		t.Fatalf("Args = %q, want %q", got, want)
	}
	if client.Model() != "htdemucs" || client.Binary() != "demucs" {
		t.Fatalf("unexpected defaults: %s %s", client.Binary(), client.Model())
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	ok := testsupport.WriteScript(t, dir, "demucs-ok", "echo usage\nexit 0\n")
	broken := testsupport.WriteScript(t, dir, "demucs-broken", "exit 1\n")

	if err := demucs.New(ok, "").Probe(context.Background()); err != nil {
		t.Fatalf("Probe ok: %v", err)
	}
	for _, binary := range []string{broken, filepath.Join(dir, "absent")} {
		err := demucs.New(binary, "").Probe(context.Background())
		if !errors.Is(err, services.ErrToolUnavailable) {
			t.Fatalf("Probe(%s) = %v, want ErrToolUnavailable", binary, err)
		}
	}
}

func TestStartStreamsOutput(t *testing.T) {
	script := testsupport.WriteScript(t, t.TempDir(), "demucs", "echo \"$1 $2\"\n")
	proc, err := demucs.New(script, "mdx").Start(context.Background(), "in.wav", "out")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	var lines []string
	for line := range proc.Lines() {
		lines = append(lines, line)
	}
	if outcome := proc.Wait(); !outcome.OK() {
		t.Fatalf("outcome = %s", outcome)
	}
	if len(lines) != 1 || lines[0] != "-n mdx" {
		t.Fatalf("lines = %q", lines)
	}
}
