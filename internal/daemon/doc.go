// Package daemon coordinates the long-running encore process.
//
// It wires configuration, the SQLite store, the job orchestrator, and the
// recording pipeline into a single lifecycle with flock-based locking to
// prevent multiple instances, and serves the HTTP API that submits uploads,
// reports job progress, and streams media back to clients.
//
// Jobs left processing by a previous process are failed at startup; runs are
// never resumed.
package daemon
