// Package queue persists analysis jobs in SQLite and is the single writer
// for job state.
//
// A job moves one-directionally through the pipeline statuses
// (pending → downloading → sampling → extracting → transcribing →
// classifying → completed) with failed and cancelled as the other terminal
// states. Each stage's output is persisted in its own JSON column as soon as
// the stage completes, so clients polling mid-job see incremental progress
// and a restart never recomputes finished stages.
package queue
