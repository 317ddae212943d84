package task

import (
	"context"
	"math"
	"time"
)

// Fn is the uniform execution contract every collaborator implements. The
// scheduler never inspects the returned value; it only cares whether the
// attempt returned an error.
type Fn func(ctx context.Context) (any, error)

// Policy captures the execution policy for a single task: how often to retry,
// how long to back off between attempts, and how long a single attempt may run.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt. A task
	// with MaxRetries = k is attempted at most k+1 times.
	MaxRetries int
	// RetryBaseDelay is the delay before the first retry.
	RetryBaseDelay time.Duration
	// BackoffMultiplier scales the delay for each subsequent retry.
	BackoffMultiplier float64
	// Timeout bounds a single attempt. Zero means no attempt timeout.
	Timeout time.Duration
}

// Delay returns the backoff delay applied after the given failed attempt
// (1-based): RetryBaseDelay * BackoffMultiplier^(attempt-1).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = 1
	}
	d := float64(p.RetryBaseDelay) * math.Pow(mult, float64(attempt-1))
	return time.Duration(d)
}

// Task describes one unit of work plus its execution policy. The scheduler
// treats the body as opaque; dependencies are expressed as ids of other tasks
// registered in the same graph.
type Task struct {
	// ID is the unique identifier of the task within its graph.
	ID string
	// Name is the human-readable description used in logs and reports.
	Name string
	// Deps lists the ids of tasks that must succeed before this one runs.
	Deps []string
	// Policy is the retry/backoff/timeout policy applied inside a single
	// dispatch slot.
	Policy Policy
	// Critical marks a task whose failure halts all further new dispatches
	// pipeline-wide. Already-running tasks are allowed to drain.
	Critical bool
	// Fn is the task body.
	Fn Fn
}

// Result is the immutable audit record of a finished (or skipped) task. Once
// a task reaches a terminal status its Result is never mutated again.
type Result struct {
	TaskID    string
	Status    Status
	Attempts  int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	// Output is the opaque success payload returned by the task body.
	Output any
	// Err holds the typed failure detail for failed tasks, or the upstream
	// cause description for skipped ones.
	Err error
}
