package task

import (
	"fmt"
	"time"
)

// ExecutionError wraps a fault returned by a task body. The scheduler records
// it on the task's Result; it is never thrown out of a run.
type ExecutionError struct {
	TaskID  string
	Attempt int
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task %q attempt %d failed: %v", e.TaskID, e.Attempt, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// TimeoutError reports that a single attempt exceeded the task's
// Policy.Timeout. It counts as a failed attempt and is subject to the same
// retry policy as any other failure.
type TimeoutError struct {
	TaskID  string
	Attempt int
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %q attempt %d timed out after %s", e.TaskID, e.Attempt, e.Timeout)
}
