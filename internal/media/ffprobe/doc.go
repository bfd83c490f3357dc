// Package ffprobe reads container metadata from audio files.
//
// Recordings use it to attach a duration after the mix pipeline settles on a
// final artifact. Callers treat probe failures as non-fatal.
package ffprobe
