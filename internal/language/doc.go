// Package language normalizes user-supplied language hints for transcription.
//
// Whisper accepts ISO 639-1 codes; operators tend to type "English", "eng", or
// "en-US". Everything funnels through golang.org/x/text/language so the
// transcription client only ever passes a canonical two-letter code.
package language
