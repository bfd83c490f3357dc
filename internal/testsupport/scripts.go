package testsupport

import (
	"strconv"
	"strings"
)

// DemucsScript returns a demucs stand-in. It answers --help, prints progress
// through printf (so \r and \n escapes in progress are honored), writes
// <out>/<model>/<stem>/<stemFile> unless stemFile is empty, then exits with code.
func DemucsScript(progress, stemFile string, code int) string {
	var b strings.Builder
	b.WriteString(`if [ "$1" = "--help" ]; then exit 0; fi
model=""; src=""; out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -n) model="$2"; shift ;;
    -o) out="$2"; shift ;;
    --*) ;;
    *) src="$1" ;;
  esac
  shift
done
stem=$(basename "$src"); stem="${stem%.*}"
`)
	if progress != "" {
		b.WriteString("printf '" + strings.ReplaceAll(progress, "%", "%%") + "'\n")
	}
	if stemFile != "" {
		b.WriteString(`mkdir -p "$out/$model/$stem"` + "\n")
		b.WriteString(`printf 'RIFF' > "$out/$model/$stem/` + stemFile + `"` + "\n")
	}
	if code != 0 {
		b.WriteString("echo 'demucs: separation failed' >&2\nexit " + strconv.Itoa(code) + "\n")
	}
	return b.String()
}

// WhisperScript returns a whisper stand-in that writes payload to
// <output_dir>/<stem>.json when payload is non-empty, then exits with code.
func WhisperScript(payload string, code int) string {
	var b strings.Builder
	b.WriteString(`src="$1"; dir=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output_dir" ]; then dir="$2"; fi
  shift
done
stem=$(basename "$src"); stem="${stem%.*}"
`)
	if payload != "" {
		b.WriteString("cat > \"$dir/$stem.json\" <<'JSON'\n" + payload + "\nJSON\n")
	}
	if code != 0 {
		b.WriteString("echo 'RuntimeError: model failed' >&2\nexit " + strconv.Itoa(code) + "\n")
	}
	return b.String()
}

// FFmpegScript returns an ffmpeg stand-in that copies its first input to the
// output path (the last argument). Operations whose arguments contain fail
// exit 1 without writing anything.
func FFmpegScript(fail string) string {
	var b strings.Builder
	b.WriteString(`in=""; out=""; all="$*"
while [ $# -gt 0 ]; do
  if [ "$1" = "-i" ] && [ -z "$in" ]; then in="$2"; fi
  out="$1"
  shift
done
`)
	if fail != "" {
		b.WriteString(`case "$all" in *"` + fail + `"*) echo 'ffmpeg: filter error' >&2; exit 1 ;; esac` + "\n")
	}
	b.WriteString(`cp "$in" "$out"` + "\n")
	return b.String()
}
