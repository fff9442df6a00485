package task

import (
	"context"
	"errors"

	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/configgraph"
	"github.com/specialistvlad/gardengo/internal/errdefs"
	"github.com/specialistvlad/gardengo/internal/registry"
)

// RunTask runs one task to completion.
type RunTask struct {
	env        *Env
	task       *config.Task
	module     *config.Module
	force      bool
	forceBuild bool
	version    string
}

var _ Task = (*RunTask)(nil)

// NewRunTask returns the run task of a configured task.
func NewRunTask(env *Env, tk *config.Task, force, forceBuild bool) (*RunTask, error) {
	m, err := env.Graph.GetModule(tk.Module)
	if err != nil {
		return nil, err
	}
	v, err := env.Graph.ModuleVersion(m.Name)
	if err != nil {
		return nil, err
	}
	return &RunTask{env: env, task: tk, module: m, force: force, forceBuild: forceBuild, version: v.VersionString}, nil
}

func (t *RunTask) Type() Type          { return TypeTask }
func (t *RunTask) Key() string         { return MakeKey(TypeTask, t.task.Name, "") }
func (t *RunTask) Name() string        { return t.task.Name }
func (t *RunTask) Description() string { return "running task " + t.task.Name }
func (t *RunTask) Force() bool         { return t.force }
func (t *RunTask) Version() string     { return t.version }

// Dependencies implements Task.
func (t *RunTask) Dependencies(ctx context.Context) ([]Task, error) {
	return runtimeDependencies(ctx, t.env, configgraph.KindTask, t.task.Name, false, t.forceBuild, nil)
}

// Process reuses a successful stored result at the current version when
// the task caches its result, and runs the task otherwise. An unsuccessful
// run is returned along with an error.
func (t *RunTask) Process(ctx context.Context, deps Results) (any, error) {
	logger := t.env.logger(ctx).With("task", t.task.Name, "version", t.version)
	params := registry.TaskParams{
		Module:   t.module,
		Task:     t.task,
		Version:  t.version,
		BuildDir: t.env.Stager.BuildPath(t.module),
	}

	if !t.force && t.task.CacheResult {
		prev, err := t.env.Router.GetTaskResult(ctx, params)
		if err != nil {
			return nil, err
		}
		if prev != nil && prev.Success && prev.Version == t.version {
			logger.Debug("Reusing stored task result.")
			return prev, nil
		}
	}

	rc, err := prepareRuntime(t.env, configgraph.KindTask, t.task.Name, t.module, t.version, deps)
	if err != nil {
		return nil, err
	}
	params.Env = mergeEnv(t.task.Env, rc)

	logger.Info("🏃 Running task.")
	res, err := t.env.Router.RunTask(ctx, params)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return &res, errdefs.NewBackendError(string(registry.ActionRunTask), t.Key(), errors.New("task reported failure"))
	}
	return &res, nil
}
