// Package pipeline owns the job lifecycle: it persists an upload, creates the
// job row, and drives separation then transcription in the background while
// clients poll for status.
//
// A job is written by exactly one run. Progress only moves upward and the
// terminal transition stores the instrumental and lyrics together, so a
// poller never observes a ready job without both results.
package pipeline
