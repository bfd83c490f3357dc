package ffmpeg_test

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"encore/internal/logging"
	"encore/internal/services"
	"encore/internal/services/ffmpeg"
	"encore/internal/testsupport"
)

// copyLast copies the first -i input to the final argument.
const copyLast = `in=""
for a in "$@"; do
  if [ "$prev" = "-i" ] && [ -z "$in" ]; then in="$a"; fi
  prev="$a"
  out="$a"
done
cp "$in" "$out"
`

func TestArgsMatchFilterChains(t *testing.T) {
	client := ffmpeg.New("", "", "", logging.NewNop())
	if got, want := client.DenoiseArgs("a.webm", "b.webm"), []string{"-i", "a.webm", "-af", "highpass=f=80,afftdn=nf=-25,dynaudnorm", "-y", "b.webm"}; !slices.Equal(got, want) {
		t.Fatalf("DenoiseArgs = %q, want %q", got, want)
	}
	if got, want := client.MixArgs("inst.wav", "voc.webm", "mix.mp3"), []string{"-i", "inst.wav", "-i", "voc.webm", "-filter_complex", "amix=inputs=2:duration=shortest", "-y", "mix.mp3"}; !slices.Equal(got, want) {
		t.Fatalf("MixArgs = %q, want %q", got, want)
	}
}

func TestDenoiseProducesOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.webm")
	testsupport.WriteFile(t, input, 16)
	script := testsupport.WriteScript(t, dir, "ffmpeg", copyLast)

	client := ffmpeg.New(script, "", "", logging.NewNop())
	if err := client.Denoise(context.Background(), input, filepath.Join(dir, "out.webm")); err != nil {
		t.Fatalf("Denoise: %v", err)
	}
}

func TestRunFailures(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.webm")
	testsupport.WriteFile(t, input, 16)

	failing := testsupport.WriteScript(t, dir, "ffmpeg-fail", "echo 'Invalid argument' >&2\nexit 1\n")
	silent := testsupport.WriteScript(t, dir, "ffmpeg-silent", "exit 0\n")

	err := ffmpeg.New(failing, "", "", nil).Denoise(context.Background(), input, filepath.Join(dir, "a.webm"))
	var toolErr *services.ToolFailedError
	if !errors.As(err, &toolErr) || toolErr.Code != 1 {
		t.Fatalf("expected ToolFailedError, got %v", err)
	}

	err = ffmpeg.New(silent, "", "", nil).Mix(context.Background(), input, input, filepath.Join(dir, "b.mp3"))
	if !errors.Is(err, services.ErrOutputNotFound) {
		t.Fatalf("expected ErrOutputNotFound, got %v", err)
	}

	err = ffmpeg.New(filepath.Join(dir, "absent"), "", "", nil).Denoise(context.Background(), input, filepath.Join(dir, "c.webm"))
	if !errors.Is(err, services.ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable, got %v", err)
	}
}
