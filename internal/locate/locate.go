// Package locate resolves artifacts written by external tools whose output
// naming is only loosely specified.
package locate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"encore/internal/services"
)

// NotFoundError reports that no artifact matching Suffix exists in Dir.
type NotFoundError struct {
	Dir    string
	Suffix string
	Err    error
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("no file ending in %q under %s", e.Suffix, e.Dir)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// Is matches services.ErrOutputNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == services.ErrOutputNotFound
}

// Dir returns the directory a tool writes its outputs for stem into.
func Dir(root, subfolder, stem string) string {
	return filepath.Join(root, subfolder, stem)
}

// Locate resolves root/subfolder/stem/suffix. When that exact file is absent it
// scans the directory and returns the lexicographically first regular file
// whose name ends in suffix.
func Locate(root, subfolder, stem, suffix string) (string, error) {
	dir := Dir(root, subfolder, stem)
	if suffix == "" {
		return "", &NotFoundError{Dir: dir, Suffix: suffix, Err: errors.New("empty suffix")}
	}

	exact := filepath.Join(dir, suffix)
	if info, err := os.Stat(exact); err == nil && info.Mode().IsRegular() {
		return exact, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &NotFoundError{Dir: dir, Suffix: suffix}
		}
		return "", &NotFoundError{Dir: dir, Suffix: suffix, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.HasSuffix(entry.Name(), suffix) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return "", &NotFoundError{Dir: dir, Suffix: suffix}
	}
	slices.Sort(names)
	return filepath.Join(dir, names[0]), nil
}

// Resolve joins a relative reference onto root, rejecting references that
// escape it.
func Resolve(root, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", services.Wrap(services.ErrValidation, "media", "resolve", "empty reference", nil)
	}
	if filepath.IsAbs(ref) {
		return "", services.Wrap(services.ErrValidation, "media", "resolve", "absolute reference rejected", nil)
	}
	full := filepath.Join(root, filepath.FromSlash(ref))
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", services.Wrap(services.ErrValidation, "media", "resolve", "reference escapes storage root", nil)
	}
	return full, nil
}

// Reference converts an absolute path under root into a slash-separated
// reference suitable for clients.
func Reference(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s", path, root)
	}
	return filepath.ToSlash(rel), nil
}
