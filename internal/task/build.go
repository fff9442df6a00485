package task

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/registry"
)

// BuildResult is the output of a BuildTask. Fresh is false when an
// up-to-date build already existed and nothing was done.
type BuildResult struct {
	Fresh    bool           `json:"fresh"`
	BuildLog string         `json:"buildLog,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// BuildTask builds one module.
type BuildTask struct {
	env     *Env
	module  *config.Module
	force   bool
	version string
}

var _ Task = (*BuildTask)(nil)

// NewBuildTask returns the build task of a module.
func NewBuildTask(env *Env, m *config.Module, force bool) (*BuildTask, error) {
	v, err := env.Graph.ModuleVersion(m.Name)
	if err != nil {
		return nil, err
	}
	return &BuildTask{env: env, module: m, force: force, version: v.VersionString}, nil
}

// NeedsBuild reports whether building the module does any work: either
// files are copied in from build dependencies or its backend builds it.
func NeedsBuild(env *Env, m *config.Module) bool {
	return m.NeedsCopy() || env.Router.HasHandler(m.Type, registry.ActionBuild)
}

// NewBuildTasks returns the tasks that build a module. A module with
// nothing to build is elided and stands in for the build tasks of its
// direct build dependencies.
func NewBuildTasks(ctx context.Context, env *Env, m *config.Module, force bool) ([]Task, error) {
	if NeedsBuild(env, m) {
		t, err := NewBuildTask(env, m, force)
		if err != nil {
			return nil, err
		}
		return []Task{t}, nil
	}

	env.logger(ctx).Debug("Eliding build task with nothing to do.", "module", m.Name)
	var tasks []Task
	for _, dep := range m.Build.Dependencies {
		depModule, err := env.Graph.GetModule(dep.Name)
		if err != nil {
			return nil, err
		}
		depTasks, err := NewBuildTasks(ctx, env, depModule, force)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, depTasks...)
	}
	return dedupe(tasks), nil
}

func (t *BuildTask) Type() Type          { return TypeBuild }
func (t *BuildTask) Key() string         { return MakeKey(TypeBuild, t.module.Name, "") }
func (t *BuildTask) Name() string        { return t.module.Name }
func (t *BuildTask) Description() string { return "building " + t.module.Name }
func (t *BuildTask) Force() bool         { return t.force }
func (t *BuildTask) Version() string     { return t.version }

// Module returns the module being built.
func (t *BuildTask) Module() *config.Module { return t.module }

// Dependencies returns the build tasks of the module's direct build
// dependencies. Force is not passed on.
func (t *BuildTask) Dependencies(ctx context.Context) ([]Task, error) {
	var tasks []Task
	for _, dep := range t.module.Build.Dependencies {
		depModule, err := t.env.Graph.GetModule(dep.Name)
		if err != nil {
			return nil, err
		}
		depTasks, err := NewBuildTasks(ctx, t.env, depModule, false)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, depTasks...)
	}
	return dedupe(tasks), nil
}

// Process probes the backend for an existing build at the current version
// unless forced, and otherwise stages the build directory and builds.
func (t *BuildTask) Process(ctx context.Context, _ Results) (any, error) {
	logger := t.env.logger(ctx).With("module", t.module.Name, "version", t.version)
	params := registry.BuildParams{
		Module:   t.module,
		Version:  t.version,
		BuildDir: t.env.Stager.BuildPath(t.module),
	}

	if !t.force {
		status, err := t.env.Router.GetBuildStatus(ctx, params)
		if err != nil {
			return nil, err
		}
		if status.Ready {
			logger.Debug("Build is up to date.")
			return &BuildResult{Fresh: false}, nil
		}
	}

	if err := t.env.Stager.SyncFromSrc(ctx, t.module); err != nil {
		return nil, fmt.Errorf("staging sources of %s: %w", t.module.Name, err)
	}
	if err := t.env.Stager.SyncDependencyProducts(ctx, t.module); err != nil {
		return nil, fmt.Errorf("staging dependency products of %s: %w", t.module.Name, err)
	}

	logger.Info("🔨 Building module.")
	out, err := t.env.Router.Build(ctx, params)
	if err != nil {
		return nil, err
	}
	return &BuildResult{Fresh: true, BuildLog: out.Log, Details: out.Details}, nil
}
