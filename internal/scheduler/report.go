package scheduler

import (
	"time"

	"github.com/vk/predictflow/internal/task"
)

// Report is the aggregated, terminal summary of a run. It is returned even
// when individual tasks failed; only structural graph errors prevent a run
// from producing one.
type Report struct {
	// Success is true when no task failed, critical or not. Skipped tasks do
	// not count against success on their own.
	Success   bool
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Succeeded int
	Failed    int
	Skipped   int

	// Tasks maps task id to its immutable result record.
	Tasks map[string]*task.Result
}

func newReport(start, end time.Time, ids []string, statuses map[string]task.Status, results map[string]*task.Result) *Report {
	r := &Report{
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Tasks:     make(map[string]*task.Result, len(ids)),
	}
	for _, id := range ids {
		res, ok := results[id]
		if !ok {
			// A task the loop never resolved keeps its last recorded status.
			res = &task.Result{TaskID: id, Status: statuses[id]}
		}
		r.Tasks[id] = res
		switch res.Status {
		case task.StatusSuccess:
			r.Succeeded++
		case task.StatusFailed:
			r.Failed++
		case task.StatusSkipped:
			r.Skipped++
		}
	}
	r.Success = r.Failed == 0 && r.Succeeded+r.Failed+r.Skipped == len(ids)
	return r
}
