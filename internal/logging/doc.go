// Package logging builds the process-wide slog logger and provides the
// attribute helpers and standardized field keys the rest of the daemon uses.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for log aggregation. Context-derived fields (job, stage,
// correlation ID) are attached through WithContext so every stage log line
// can be traced back to its job.
package logging
