package task

import "context"

// ForModules returns the build tasks of the named modules, or of every
// module when no names are given.
func ForModules(ctx context.Context, env *Env, names []string, force bool) ([]Task, error) {
	modules, err := env.Graph.GetModules(names...)
	if err != nil {
		return nil, err
	}
	var tasks []Task
	for _, m := range modules {
		builds, err := NewBuildTasks(ctx, env, m, force)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, builds...)
	}
	return dedupe(tasks), nil
}

// ForServices returns deploy tasks for the named services, or all services.
func ForServices(env *Env, names []string, force, forceBuild bool, hotReload []string) ([]Task, error) {
	services, err := env.Graph.GetServices(names...)
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(services))
	for _, s := range services {
		t, err := NewDeployTask(env, s, force, forceBuild, hotReload)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// ForTasks returns run tasks for the named tasks, or all tasks.
func ForTasks(env *Env, names []string, force, forceBuild bool) ([]Task, error) {
	configured, err := env.Graph.GetTasks(names...)
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(configured))
	for _, tk := range configured {
		t, err := NewRunTask(env, tk, force, forceBuild)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// ForTests returns test tasks for every test of the named modules, or of
// all modules.
func ForTests(env *Env, modules []string, force, forceBuild bool) ([]Task, error) {
	tests, err := env.Graph.GetTests(modules...)
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(tests))
	for _, test := range tests {
		t, err := NewTestTask(env, test, force, forceBuild)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}
