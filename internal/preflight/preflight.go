package preflight

import (
	"encore/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes the storage checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Storage root", cfg.Paths.StorageRoot),
		CheckDirectoryAccess("Recordings", cfg.RecordingsPath()),
		CheckDirectoryAccess("Instrumentals", cfg.InstrumentalsPath()),
		CheckFreeSpace("Free space", cfg.Paths.StorageRoot, cfg.Limits.MinFreeDiskMB),
	}
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
