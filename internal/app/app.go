package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/predictflow/internal/config"
	"github.com/vk/predictflow/internal/ctxlog"
	"github.com/vk/predictflow/internal/pipeline"
	"github.com/vk/predictflow/internal/scheduler"
	"github.com/vk/predictflow/internal/source"
	"github.com/vk/predictflow/internal/store"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	appCfg  *Config
	pipeCfg *config.Pipeline
	sched   *scheduler.Scheduler
	store   *store.Store

	httpSources []*source.HTTPSource
	httpServer  *http.Server
}

// NewApp constructs a fully wired application: logger, pipeline config,
// store, sources, and a scheduler populated with the built task set.
func NewApp(ctx context.Context, outW io.Writer, appCfg *Config) (*App, error) {
	logger := newLogger(appCfg.LogLevel, appCfg.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	pipeCfg, err := config.Load(ctx, appCfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	a := &App{
		outW:    outW,
		logger:  logger,
		appCfg:  appCfg,
		pipeCfg: pipeCfg,
		store:   store.New(),
	}

	sources := make(map[string]source.Source, len(pipeCfg.Sources))
	for _, sc := range pipeCfg.Sources {
		hs := source.NewHTTPSource(sc.Name, sc.BaseURL, sc.ClientTimeout())
		sources[sc.Name] = hs
		a.httpSources = append(a.httpSources, hs)
	}

	tasks, err := pipeline.Build(pipeCfg, pipeline.Deps{Store: a.store, Sources: sources})
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	logger.Debug("Pipeline task set built.", "tasks", len(tasks))

	a.sched = scheduler.New()
	if err := a.sched.RegisterMany(tasks...); err != nil {
		return nil, fmt.Errorf("failed to register pipeline tasks: %w", err)
	}

	return a, nil
}

// Scheduler returns the application's scheduler. This is primarily for testing.
func (a *App) Scheduler() *scheduler.Scheduler {
	return a.sched
}

// Store returns the application's data store. This is primarily for testing.
func (a *App) Store() *store.Store {
	return a.store
}
