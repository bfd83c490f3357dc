package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"encore/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if res := CheckDirectoryAccess("dir", dir); !res.Passed {
		t.Fatalf("expected pass, got %+v", res)
	}

	missing := CheckDirectoryAccess("missing", filepath.Join(dir, "nope"))
	if missing.Passed || !strings.Contains(missing.Detail, "does not exist") {
		t.Fatalf("unexpected result %+v", missing)
	}

	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	notDir := CheckDirectoryAccess("file", file)
	if notDir.Passed || !strings.Contains(notDir.Detail, "not a directory") {
		t.Fatalf("unexpected result %+v", notDir)
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if res := CheckFreeSpace("space", dir, 0); !res.Passed {
		t.Fatalf("zero minimum should pass, got %+v", res)
	}
	if res := CheckFreeSpace("space", dir, 1<<40); res.Passed {
		t.Fatalf("absurd minimum should fail, got %+v", res)
	}
	if res := CheckFreeSpace("space", filepath.Join(dir, "nope"), 0); res.Passed {
		t.Fatalf("missing path should fail, got %+v", res)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(cfg)
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if !AllPassed(results) {
		t.Fatalf("fresh config should pass: %+v", results)
	}
	if RunAll(nil) != nil {
		t.Fatal("nil config should yield no results")
	}
}
