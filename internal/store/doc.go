// Package store persists karaoke jobs and recordings in SQLite.
//
// Jobs move one way from processing to ready or error. Every write for a job
// id is serialized through a keyed lock and guarded in SQL by the job's
// current status, so a terminal job never changes again and progress never
// moves backwards. CompleteJob writes the instrumental path, lyrics, and the
// ready status in a single statement so readers never observe one without the
// others.
//
// The schema is embedded and versioned; an unexpected version fails Open with
// ErrSchemaMismatch rather than migrating in place.
package store
