package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vk/predictflow/internal/ctxlog"
	"github.com/vk/predictflow/internal/dag"
	"github.com/vk/predictflow/internal/task"
)

// Scheduler drives the dispatch loop over a dependency graph: it computes the
// ready set, bounds concurrent execution, applies per-task retry/backoff, and
// propagates failure and skip cascades.
//
// All mutable run state is owned by the single coordinating goroutine inside
// Run. Task bodies communicate their outcomes back over a channel and never
// touch scheduler state directly. External readers observe progress through
// Status, which reads an atomically published immutable snapshot.
type Scheduler struct {
	graph    *dag.Graph
	snapshot atomic.Pointer[Snapshot]
}

// New creates a scheduler with an empty dependency graph.
func New() *Scheduler {
	return &Scheduler{graph: dag.New()}
}

// Register adds a task to the graph. It returns a dag.DuplicateError on an
// id collision.
func (s *Scheduler) Register(t *task.Task) error {
	if t == nil || t.ID == "" {
		return fmt.Errorf("task must have a non-empty id")
	}
	if t.Fn == nil {
		return fmt.Errorf("task %q must have a body", t.ID)
	}
	return s.graph.Add(t)
}

// RegisterMany adds tasks in order, stopping at the first error.
func (s *Scheduler) RegisterMany(tasks ...*task.Task) error {
	for _, t := range tasks {
		if err := s.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// outcome carries a finished task's result back to the coordinator.
type outcome struct {
	id  string
	res *task.Result
}

// Run validates the graph and executes every task to a terminal state. It
// fails fast, before any dispatch, on structural errors (duplicate ids are
// caught at registration; unknown dependencies and cycles here). Runtime
// failures never abort the run: they are captured per task and surfaced
// through the returned Report.
//
// At most maxConcurrent tasks hold running status at any instant. Among
// ready tasks, dispatch follows registration order; completion order is
// unconstrained.
func (s *Scheduler) Run(ctx context.Context, maxConcurrent int) (*Report, error) {
	if maxConcurrent < 1 {
		return nil, fmt.Errorf("max concurrent must be at least 1, got %d", maxConcurrent)
	}
	if err := s.graph.Validate(); err != nil {
		return nil, err
	}
	s.graph.Reset()

	logger := ctxlog.FromContext(ctx)
	total := s.graph.Len()
	statuses := make(map[string]task.Status, total)
	results := make(map[string]*task.Result, total)
	for _, id := range s.graph.IDs() {
		statuses[id] = task.StatusPending
	}

	snap := Snapshot{Total: total, Pending: total}
	start := time.Now()
	s.publish(snap)

	ready := s.graph.InitialReady()
	outcomes := make(chan outcome)
	running := 0
	terminal := 0
	halted := false

	markSkipped := func(id string, reason error) {
		statuses[id] = task.StatusSkipped
		results[id] = &task.Result{TaskID: id, Status: task.StatusSkipped, Err: reason}
		snap.Pending--
		snap.Skipped++
		terminal++
	}

	logger.Info("🚀 Pipeline run starting", "tasks", total, "max_concurrent", maxConcurrent)

	for terminal < total {
		if !halted {
			for running < maxConcurrent && len(ready) > 0 {
				id := ready[0]
				ready = ready[1:]
				if statuses[id] != task.StatusPending {
					continue
				}
				t, _ := s.graph.Task(id)
				statuses[id] = task.StatusRunning
				snap.Pending--
				snap.Running++
				running++
				logger.Debug("Dispatching task.", "task", id, "running", running)
				go s.execute(ctx, t, outcomes)
			}
		}
		s.publish(snap)
		if running == 0 {
			// Nothing running and nothing dispatchable. A validated acyclic
			// graph cannot reach this with pending tasks left, but break
			// rather than deadlock if it ever does.
			break
		}

		o := <-outcomes
		running--
		snap.Running--
		statuses[o.id] = o.res.Status
		results[o.id] = o.res
		terminal++

		ok := o.res.Status == task.StatusSuccess
		if ok {
			snap.Succeeded++
			logger.Debug("Task succeeded.", "task", o.id, "attempts", o.res.Attempts, "duration", o.res.Duration)
		} else {
			snap.Failed++
			logger.Error("Task failed.", "task", o.id, "attempts", o.res.Attempts, "error", o.res.Err)
		}

		newReady, cascades := s.graph.NotifyTerminal(o.id, ok)
		for _, c := range cascades {
			if statuses[c.ID] == task.StatusPending {
				logger.Warn("Skipping task due to upstream failure.", "task", c.ID, "upstream", c.Upstream)
				markSkipped(c.ID, fmt.Errorf("skipped: upstream task %q did not succeed", c.Upstream))
			}
		}
		if !halted {
			ready = append(ready, newReady...)
		}

		if t, _ := s.graph.Task(o.id); !ok && t.Critical && !halted {
			halted = true
			ready = nil
			logger.Error("Critical task failed, halting new dispatches.", "task", o.id)
			for _, id := range s.graph.IDs() {
				if statuses[id] == task.StatusPending {
					s.graph.Skip(id)
					markSkipped(id, fmt.Errorf("skipped: pipeline halted after critical task %q failed", o.id))
				}
			}
		}
		s.publish(snap)
	}

	report := newReport(start, time.Now(), s.graph.IDs(), statuses, results)
	logger.Info("🏁 Pipeline run finished",
		"success", report.Success,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"duration", report.Duration,
	)
	return report, nil
}

// Status returns the most recently published progress snapshot. It is safe
// to call concurrently with Run and never blocks the dispatch loop.
func (s *Scheduler) Status() Snapshot {
	if p := s.snapshot.Load(); p != nil {
		return *p
	}
	n := s.graph.Len()
	return Snapshot{Total: n, Pending: n}
}

func (s *Scheduler) publish(snap Snapshot) {
	s.snapshot.Store(&snap)
}
