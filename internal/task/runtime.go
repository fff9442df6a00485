package task

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/configgraph"
	"github.com/specialistvlad/gardengo/internal/registry"
	"github.com/specialistvlad/gardengo/internal/runtimectx"
)

// runtimeDependencies returns the dependencies shared by deploy, run and
// test tasks: the builds of the node's module and the deploy and run tasks
// of the services and tasks it depends on.
func runtimeDependencies(ctx context.Context, env *Env, kind configgraph.Kind, name string, skipBuild bool, forceBuild bool, hotReload []string) ([]Task, error) {
	rel, err := env.Graph.GetDependencies(kind, name, false)
	if err != nil {
		return nil, err
	}

	var tasks []Task
	if !skipBuild {
		for _, m := range rel.Build {
			builds, err := NewBuildTasks(ctx, env, m, forceBuild)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, builds...)
		}
	}
	for _, s := range rel.Service {
		d, err := NewDeployTask(env, s, false, forceBuild, hotReload)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, d)
	}
	for _, tk := range rel.Task {
		r, err := NewRunTask(env, tk, false, forceBuild)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, r)
	}
	return dedupe(tasks), nil
}

// prepareRuntime assembles the runtime context of a service, task or test
// from the graph and the results of its dependencies.
func prepareRuntime(env *Env, kind configgraph.Kind, name string, m *config.Module, version string, deps Results) (runtimectx.RuntimeContext, error) {
	rel, err := env.Graph.GetDependencies(kind, name, false)
	if err != nil {
		return runtimectx.RuntimeContext{}, err
	}
	// The module's own build dependencies expose their outputs as well.
	modRel, err := env.Graph.GetDependencies(configgraph.KindBuild, m.Name, false)
	if err != nil {
		return runtimectx.RuntimeContext{}, err
	}

	var in runtimectx.Dependencies
	for _, bm := range append(rel.Build, modRel.Build...) {
		v, err := env.Graph.ModuleVersion(bm.Name)
		if err != nil {
			return runtimectx.RuntimeContext{}, err
		}
		in.Build = append(in.Build, runtimectx.Dependency{
			ModuleName: bm.Name,
			Name:       bm.Name,
			Outputs:    bm.Outputs,
			Version:    v.VersionString,
		})
	}
	for _, s := range rel.Service {
		d := runtimectx.Dependency{ModuleName: s.Module, Name: s.Name}
		if res, ok := deps.Find(TypeDeploy, s.Name); ok {
			d.Version = res.Version
			if st, ok := res.Output.(*registry.ServiceStatus); ok && st != nil {
				d.Outputs = st.Outputs
			}
		}
		in.Service = append(in.Service, d)
	}
	for _, tk := range rel.Task {
		d := runtimectx.Dependency{ModuleName: tk.Module, Name: tk.Name}
		if res, ok := deps.Find(TypeTask, tk.Name); ok {
			d.Version = res.Version
			if rr, ok := res.Output.(*registry.RunResult); ok && rr != nil {
				d.Outputs = rr.Outputs
			}
		}
		in.Task = append(in.Task, d)
	}

	rc, err := runtimectx.Prepare(m, version, env.variables(), in)
	if err != nil {
		return runtimectx.RuntimeContext{}, fmt.Errorf("preparing runtime context of %s: %w", name, err)
	}
	return rc, nil
}

// mergeEnv overlays the runtime context on top of static environment
// variables from configuration.
func mergeEnv(static map[string]string, rc runtimectx.RuntimeContext) map[string]string {
	out := make(map[string]string, len(static)+len(rc.EnvVars))
	for k, v := range static {
		out[k] = v
	}
	for k, v := range rc.EnvVars {
		out[k] = v
	}
	return out
}
