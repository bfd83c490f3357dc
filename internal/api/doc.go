// Package api defines the HTTP wire format shared by the daemon and the CLI,
// plus a small client for the daemon's HTTP API.
//
// # Key Types
//
// Job: polling view of a karaoke job with progress, lyrics, and an
// instrumental URL derived from a storage-relative reference.
//
// Recording: listing view of a processed vocal take.
//
// DaemonStatus: dependency availability, storage checks, and job counts.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Media is addressed by /api/media/<ref> where
// ref is relative to the storage root, so payloads never carry server paths.
// Timestamps use RFC3339 with milliseconds.
package api
