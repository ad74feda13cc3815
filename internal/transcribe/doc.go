// Package transcribe turns a video's audio track into a timed transcript.
//
// Audio is extracted with ffmpeg as mono 16kHz WAV and fed to WhisperX via
// uvx. Videos without an audio stream produce an empty transcript rather than
// an error so silent videos still classify on visual evidence alone.
package transcribe
