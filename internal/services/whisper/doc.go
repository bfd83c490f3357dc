// Package whisper runs the openai-whisper CLI and reads its JSON transcript.
//
// The client asks whisper for JSON output in a scratch directory, then loads
// the segment list from <output_dir>/<input stem>.json. Language hints are
// normalized to ISO 639-1 before they reach the command line.
package whisper
