// Package services defines shared utilities consumed by the workflow stage
// handlers and external model adapters.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     (unreadable source, unavailable engine, unparseable verdict, timeout)
//     so the workflow manager can persist a consistent failure record.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability) stays uniform across the pipeline.
package services
