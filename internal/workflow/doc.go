// Package workflow drives analysis jobs through the processing pipeline.
//
// A Manager polls the queue for pending jobs and runs each through the
// stages in order: download, sample, extract and transcribe (concurrently),
// classify, report. Stage outputs are persisted on the job as they complete,
// so a job reclaimed after a crash resumes from its last finished stage
// instead of recomputing earlier work. Cancellation requests take effect at
// stage boundaries. The classify stage is gated by a semaphore because the
// vision-language model is the GPU-bound bottleneck.
package workflow
