// Package fileutil persists uploaded audio and derives filesystem-safe names.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"encore/internal/services"
)

// ErrTooLarge reports an upload above the configured limit.
var ErrTooLarge = errors.New("upload exceeds size limit")

// SanitizeFileName reduces name to a safe base name: accents are folded,
// whitespace becomes underscores, and anything outside [A-Za-z0-9._-] is
// dropped. Directory components are discarded. Empty results become "upload".
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" {
		name = ""
	}
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name)
	if err == nil {
		name = folded
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), "._")
	if out == "" {
		return "upload"
	}
	return out
}

// SanitizeToken converts a value to a lowercase token safe for file names.
// Letters are lowercased, digits and hyphens are kept, everything else becomes
// a dash. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "unknown"
	}
	return out
}

// SaveStream writes r to path through a temporary sibling and renames it into
// place. A limit above zero rejects streams larger than limit bytes with
// ErrTooLarge and leaves nothing behind.
func SaveStream(r io.Reader, path string, limit int64) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, services.Wrap(services.ErrIO, "storage", "save", "create directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, services.Wrap(services.ErrIO, "storage", "save", "create temp file", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(tmp, src)
	if err != nil {
		return n, services.Wrap(services.ErrIO, "storage", "save", "write "+filepath.Base(path), err)
	}
	if limit > 0 && n > limit {
		return n, services.Wrap(services.ErrValidation, "storage", "save", fmt.Sprintf("limit is %d bytes", limit), ErrTooLarge)
	}
	if err := tmp.Close(); err != nil {
		return n, services.Wrap(services.ErrIO, "storage", "save", "close temp file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return n, services.Wrap(services.ErrIO, "storage", "save", "rename into place", err)
	}
	committed = true
	return n, nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// RemoveQuietly deletes path, treating a missing file as success.
func RemoveQuietly(path string) error {
	if path == "" {
		return nil
	}
	if err := os.RemoveAll(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
