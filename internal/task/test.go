package task

import (
	"context"
	"errors"

	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/configgraph"
	"github.com/specialistvlad/gardengo/internal/errdefs"
	"github.com/specialistvlad/gardengo/internal/registry"
)

// TestTask runs one test suite of a module.
type TestTask struct {
	env        *Env
	test       *config.Test
	module     *config.Module
	force      bool
	forceBuild bool
	version    string
}

var _ Task = (*TestTask)(nil)

// NewTestTask returns the task that runs a test suite.
func NewTestTask(env *Env, test *config.Test, force, forceBuild bool) (*TestTask, error) {
	m, err := env.Graph.GetModule(test.Module)
	if err != nil {
		return nil, err
	}
	v, err := env.Graph.ModuleVersion(m.Name)
	if err != nil {
		return nil, err
	}
	return &TestTask{env: env, test: test, module: m, force: force, forceBuild: forceBuild, version: v.VersionString}, nil
}

func (t *TestTask) Type() Type          { return TypeTest }
func (t *TestTask) Key() string         { return MakeKey(TypeTest, t.test.Key(), "") }
func (t *TestTask) Name() string        { return t.test.Key() }
func (t *TestTask) Description() string { return "running test " + t.test.Key() }
func (t *TestTask) Force() bool         { return t.force }
func (t *TestTask) Version() string     { return t.version }

// Dependencies implements Task.
func (t *TestTask) Dependencies(ctx context.Context) ([]Task, error) {
	return runtimeDependencies(ctx, t.env, configgraph.KindTest, t.test.Key(), false, t.forceBuild, nil)
}

// Process reuses a stored successful result at the current version unless
// forced. A failing suite is returned along with an error.
func (t *TestTask) Process(ctx context.Context, deps Results) (any, error) {
	logger := t.env.logger(ctx).With("test", t.test.Key(), "version", t.version)
	params := registry.TestParams{
		Module:   t.module,
		Test:     t.test,
		Version:  t.version,
		BuildDir: t.env.Stager.BuildPath(t.module),
	}

	if !t.force {
		prev, err := t.env.Router.GetTestResult(ctx, params)
		if err != nil {
			return nil, err
		}
		if prev != nil && prev.Success && prev.Version == t.version {
			logger.Debug("Test already passed at this version.")
			return prev, nil
		}
	}

	rc, err := prepareRuntime(t.env, configgraph.KindTest, t.test.Key(), t.module, t.version, deps)
	if err != nil {
		return nil, err
	}
	params.Env = mergeEnv(t.test.Env, rc)

	logger.Info("🧪 Running tests.")
	res, err := t.env.Router.TestModule(ctx, params)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return &res, errdefs.NewBackendError(string(registry.ActionTestModule), t.Key(), errors.New("tests failed"))
	}
	return &res, nil
}
