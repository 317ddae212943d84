// Package task defines the unit of work the orchestrator dispatches: a Task
// with an id, a dependency set, an execution policy (retries, backoff,
// timeout, criticality), and an opaque body. It also defines the per-task
// lifecycle Status and the immutable Result audit record.
package task
