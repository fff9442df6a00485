package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/gardengo/internal/configgraph"
	"github.com/specialistvlad/gardengo/internal/ctxlog"
	"github.com/specialistvlad/gardengo/internal/errdefs"
	"github.com/specialistvlad/gardengo/internal/events"
	"github.com/specialistvlad/gardengo/internal/scheduler"
	"github.com/specialistvlad/gardengo/internal/task"
)

// ErrTasksFailed is returned by Run when any task failed or was skipped.
var ErrTasksFailed = errors.New("one or more tasks failed")

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	if a.config.HealthcheckPort > 0 {
		if err := a.startHealthcheckServer(a.config.HealthcheckPort); err != nil {
			return err
		}
		defer a.closeHealthcheckServer(ctx)
	}

	g, err := a.project.ConfigGraph(ctx)
	if err != nil {
		return err
	}

	if a.config.Command == CommandGraph {
		return printGraph(a.outW, g)
	}

	env := &task.Env{Graph: g, Router: a.registry, Stager: a.project.Stager(), Logger: a.logger}
	roots, err := a.rootTasks(ctx, env)
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		a.logger.Warn("Nothing to do.", "command", a.config.Command)
		return nil
	}

	disconnect, err := a.connectEvents(ctx)
	if err != nil {
		return err
	}
	defer disconnect()

	summary := events.NewSummary()
	a.bus.Subscribe(summary)

	a.logger.Info("🚀 Starting task graph...", "command", a.config.Command, "roots", len(roots))
	results, err := a.scheduler.ProcessTasks(ctx, roots, scheduler.ProcessOptions{})
	if err != nil {
		return err
	}
	a.logger.Info("🏁 Task graph finished.", "tasks", len(results))

	if err := summary.Render(a.outW); err != nil {
		return err
	}
	if failed := results.Failed(); len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d", ErrTasksFailed, len(failed), len(results))
	}
	return nil
}

func (a *App) rootTasks(ctx context.Context, env *task.Env) ([]task.Task, error) {
	c := a.config
	switch c.Command {
	case CommandBuild:
		return task.ForModules(ctx, env, c.Names, c.Force)
	case CommandDeploy:
		return task.ForServices(env, c.Names, c.Force, c.ForceBuild, c.HotReload)
	case CommandTest:
		return task.ForTests(env, c.Names, c.Force, c.ForceBuild)
	case CommandRun:
		return task.ForTasks(env, c.Names, c.Force, c.ForceBuild)
	}
	return nil, &errdefs.ConfigurationError{Message: fmt.Sprintf("unknown command %q", c.Command)}
}

func dependencyKeys(r configgraph.Relations) []string {
	var keys []string
	for _, m := range r.Build {
		keys = append(keys, configgraph.NodeKey(configgraph.KindBuild, m.Name))
	}
	for _, s := range r.Service {
		keys = append(keys, configgraph.NodeKey(configgraph.KindService, s.Name))
	}
	for _, t := range r.Task {
		keys = append(keys, configgraph.NodeKey(configgraph.KindTask, t.Name))
	}
	for _, t := range r.Test {
		keys = append(keys, configgraph.NodeKey(configgraph.KindTest, t.Key()))
	}
	return keys
}
