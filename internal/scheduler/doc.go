// Package scheduler is the execution half of the orchestrator. It drives a
// validated task graph to completion: a single coordinating goroutine
// computes the ready set, dispatches tasks FIFO up to a concurrency bound,
// applies per-task retry/backoff and attempt timeouts inside each dispatch
// slot, cascades skips across transitive dependents of failures, and halts
// all new dispatches when a critical task fails while letting running tasks
// drain. Progress is observable through atomically published snapshots, and
// every run ends in an aggregated Report.
package scheduler
