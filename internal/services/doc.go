// Package services defines shared utilities consumed by the pipeline stages and
// the external tool clients.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, recording IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (tool unavailable, tool failed, output missing, transcription, I/O) so
//     the orchestrator can persist a readable reason on the job.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
