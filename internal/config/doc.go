// Package config loads, normalizes, and validates encore configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours the ENCORE_API_TOKEN environment fallback. The Config
// type centralizes every knob the daemon and CLI need: the storage root, the
// external tool binaries, their models and filter chains, and upload limits.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
