package scheduler

import (
	"context"
	"time"

	"github.com/vk/predictflow/internal/ctxlog"
	"github.com/vk/predictflow/internal/task"
)

// execute runs one task to completion inside its dispatch slot and reports
// the result to the coordinator. Retries happen in place here, not by
// re-queueing the task.
func (s *Scheduler) execute(ctx context.Context, t *task.Task, out chan<- outcome) {
	out <- outcome{id: t.ID, res: s.runWithRetry(ctx, t)}
}

// runWithRetry applies the task's retry policy: on a failed attempt it waits
// Policy.Delay(attempt) and tries again, up to MaxRetries retries. A timeout
// counts as a failure of that attempt and is retried like any other error.
func (s *Scheduler) runWithRetry(ctx context.Context, t *task.Task) *task.Result {
	logger := ctxlog.FromContext(ctx).With("task", t.ID)
	res := &task.Result{TaskID: t.ID, Status: task.StatusRunning, StartTime: time.Now()}
	defer func() {
		res.EndTime = time.Now()
		res.Duration = res.EndTime.Sub(res.StartTime)
	}()

	for attempt := 1; ; attempt++ {
		res.Attempts = attempt
		output, err := runAttempt(ctx, t, attempt)
		if err == nil {
			res.Status = task.StatusSuccess
			res.Output = output
			res.Err = nil
			return res
		}
		res.Err = err

		if attempt > t.Policy.MaxRetries || ctx.Err() != nil {
			res.Status = task.StatusFailed
			return res
		}

		delay := t.Policy.Delay(attempt)
		logger.Warn("Attempt failed, retrying.", "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			res.Status = task.StatusFailed
			return res
		}
	}
}

type attemptOutcome struct {
	output any
	err    error
}

// runAttempt executes a single attempt of the task body, bounded by
// Policy.Timeout when set. Cancellation is cooperative: a body that ignores
// its context keeps running in its goroutine after a timeout, but the attempt
// is still accounted as failed.
func runAttempt(ctx context.Context, t *task.Task, attempt int) (any, error) {
	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if t.Policy.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, t.Policy.Timeout)
	}
	defer cancel()

	done := make(chan attemptOutcome, 1)
	go func() {
		output, err := t.Fn(attemptCtx)
		done <- attemptOutcome{output: output, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, &task.ExecutionError{TaskID: t.ID, Attempt: attempt, Err: r.err}
		}
		return r.output, nil
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return nil, &task.ExecutionError{TaskID: t.ID, Attempt: attempt, Err: ctx.Err()}
		}
		return nil, &task.TimeoutError{TaskID: t.ID, Attempt: attempt, Timeout: t.Policy.Timeout}
	}
}
