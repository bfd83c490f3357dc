// Package recording turns a captured vocal take into its final artifact.
//
// Denoise and mix are both optional enhancements. Each falls back to the last
// artifact that was successfully produced, so a saved capture always ends up
// as a persisted recording.
package recording
