package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/predictflow/internal/ctxlog"
	"github.com/vk/predictflow/internal/scheduler"
	"github.com/vk/predictflow/internal/task"
)

// Run executes the pipeline to completion and renders the report. Structural
// graph errors surface as a returned error; per-task failures are reflected
// in the report only.
func (a *App) Run(ctx context.Context) (*scheduler.Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.appCfg.StatusPort > 0 {
		a.startStatusServer()
		defer a.closeStatusServer()
	}
	defer func() {
		for _, hs := range a.httpSources {
			hs.Close()
		}
	}()

	maxConcurrent := a.appCfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = a.pipeCfg.MaxConcurrent
	}

	report, err := a.sched.Run(ctx, maxConcurrent)
	if err != nil {
		return nil, fmt.Errorf("pipeline run failed: %w", err)
	}

	a.renderReport(report)
	a.logger.Debug("App.Run method finished.")
	return report, nil
}

// renderReport prints the per-task outcome table and the overall verdict.
func (a *App) renderReport(report *scheduler.Report) {
	ids := make([]string, 0, len(report.Tasks))
	for id := range report.Tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(a.outW, "\nPipeline report (%s)\n", report.Duration.Round(timePrecision))
	for _, id := range ids {
		res := report.Tasks[id]
		line := fmt.Sprintf("  %-8s %s", res.Status, id)
		switch res.Status {
		case task.StatusSuccess:
			line += fmt.Sprintf("  attempts=%d duration=%s", res.Attempts, res.Duration.Round(timePrecision))
		case task.StatusFailed:
			line += fmt.Sprintf("  attempts=%d error=%v", res.Attempts, res.Err)
		case task.StatusSkipped:
			if res.Err != nil {
				line += fmt.Sprintf("  %v", res.Err)
			}
		}
		fmt.Fprintln(a.outW, line)
	}
	verdict := "SUCCESS"
	if !report.Success {
		verdict = "FAILED"
	}
	fmt.Fprintf(a.outW, "%s: %d succeeded, %d failed, %d skipped\n",
		verdict, report.Succeeded, report.Failed, report.Skipped)
}
