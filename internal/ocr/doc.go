// Package ocr extracts on-screen text from sampled frames using a fast
// primary engine with a slower, more accurate fallback.
//
// The primary engine detects text regions and proposes readings. Readings
// below the configured confidence threshold are re-read by the fallback
// engine against the same region; a non-empty fallback reading replaces the
// primary text while the primary region geometry is retained. Detections are
// never dropped for low confidence. When the primary engine is unavailable
// the extractor degrades to whole-frame fallback recognition rather than
// failing the job.
package ocr
