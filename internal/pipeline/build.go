package pipeline

import (
	"fmt"

	"github.com/vk/predictflow/internal/config"
	"github.com/vk/predictflow/internal/source"
	"github.com/vk/predictflow/internal/store"
	"github.com/vk/predictflow/internal/task"
)

// Deps are the collaborators the built tasks close over.
type Deps struct {
	Store   *store.Store
	Sources map[string]source.Source
}

// Build expands a pipeline declaration into the full task set:
//
//	fetch_<source>_<symbol> → clean_<source>_<symbol> → store_<source>_<symbol>
//	aggregate_<symbol>_<interval>  (after every store task of the symbol)
//	analyze_<symbol>               (after every aggregate task of the symbol)
//	health                         (after every analyze task)
//
// Clean and store tasks are critical: a failure there poisons everything
// downstream, so the scheduler halts new dispatches pipeline-wide.
func Build(cfg *config.Pipeline, deps Deps) ([]*task.Task, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("pipeline requires a store")
	}
	policy, err := cfg.TaskPolicy()
	if err != nil {
		return nil, err
	}

	var tasks []*task.Task

	for _, srcCfg := range cfg.Sources {
		src, ok := deps.Sources[srcCfg.Name]
		if !ok {
			return nil, fmt.Errorf("no source registered for %q", srcCfg.Name)
		}
		for _, symbol := range cfg.Symbols {
			fetchID := fmt.Sprintf("fetch_%s_%s", srcCfg.Name, symbol)
			cleanID := fmt.Sprintf("clean_%s_%s", srcCfg.Name, symbol)
			storeID := fmt.Sprintf("store_%s_%s", srcCfg.Name, symbol)

			tasks = append(tasks,
				&task.Task{
					ID:     fetchID,
					Name:   fmt.Sprintf("fetch %s %s", srcCfg.Name, symbol),
					Policy: policy,
					Fn:     fetchFn(deps.Store, src, symbol, cfg.WindowDays),
				},
				&task.Task{
					ID:       cleanID,
					Name:     fmt.Sprintf("clean %s %s", srcCfg.Name, symbol),
					Deps:     []string{fetchID},
					Policy:   policy,
					Critical: true,
					Fn:       cleanFn(deps.Store, srcCfg.Name, symbol),
				},
				&task.Task{
					ID:       storeID,
					Name:     fmt.Sprintf("store %s %s", srcCfg.Name, symbol),
					Deps:     []string{cleanID},
					Policy:   policy,
					Critical: true,
					Fn:       storeFn(deps.Store, srcCfg.Name, symbol),
				},
			)
		}
	}

	for _, symbol := range cfg.Symbols {
		var storeIDs []string
		for _, srcCfg := range cfg.Sources {
			storeIDs = append(storeIDs, fmt.Sprintf("store_%s_%s", srcCfg.Name, symbol))
		}
		var aggregateIDs []string
		for _, interval := range cfg.Intervals {
			id := fmt.Sprintf("aggregate_%s_%s", symbol, interval)
			aggregateIDs = append(aggregateIDs, id)
			tasks = append(tasks, &task.Task{
				ID:     id,
				Name:   fmt.Sprintf("aggregate %s %s bars", symbol, interval),
				Deps:   storeIDs,
				Policy: policy,
				Fn:     aggregateFn(deps.Store, symbol, interval),
			})
		}
		tasks = append(tasks, &task.Task{
			ID:     fmt.Sprintf("analyze_%s", symbol),
			Name:   fmt.Sprintf("analyze %s", symbol),
			Deps:   aggregateIDs,
			Policy: policy,
			Fn:     analyzeFn(deps.Store, symbol, cfg.Intervals[0]),
		})
	}

	var analyzeIDs []string
	for _, symbol := range cfg.Symbols {
		analyzeIDs = append(analyzeIDs, fmt.Sprintf("analyze_%s", symbol))
	}
	tasks = append(tasks, &task.Task{
		ID:     "health",
		Name:   "pipeline data health check",
		Deps:   analyzeIDs,
		Policy: policy,
		Fn:     healthFn(deps.Store),
	})

	return tasks, nil
}
