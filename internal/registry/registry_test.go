package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Dispatch(t *testing.T) {
	r := New()
	r.RegisterHandlers("exec", &Handlers{
		Build: func(ctx context.Context, p BuildParams) (BuildOutput, error) {
			return BuildOutput{Log: "built " + p.Module.Name}, nil
		},
		RunTask: func(ctx context.Context, p TaskParams) (RunResult, error) {
			return RunResult{}, errors.New("exit status 1")
		},
	})
	mod := &config.Module{Name: "api", Type: "exec"}

	assert.True(t, r.HasHandler("exec", ActionBuild))
	assert.False(t, r.HasHandler("exec", ActionDeployService))
	assert.False(t, r.HasHandler("container", ActionBuild))

	out, err := r.Build(context.Background(), BuildParams{Module: mod})
	require.NoError(t, err)
	assert.Equal(t, "built api", out.Log)

	t.Run("defaults for missing handlers", func(t *testing.T) {
		st, err := r.GetBuildStatus(context.Background(), BuildParams{Module: mod})
		require.NoError(t, err)
		assert.False(t, st.Ready)

		svc, err := r.GetServiceStatus(context.Background(), ServiceParams{Module: mod, Service: &config.Service{Name: "api"}})
		require.NoError(t, err)
		assert.Equal(t, StateMissing, svc.State)

		res, err := r.GetTaskResult(context.Background(), TaskParams{Module: mod, Task: &config.Task{Name: "t"}})
		require.NoError(t, err)
		assert.Nil(t, res)
	})

	t.Run("missing action handler fails", func(t *testing.T) {
		_, err := r.DeployService(context.Background(), ServiceParams{Module: mod, Service: &config.Service{Name: "api"}})
		var be *errdefs.BackendExecutionError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "deploy.api", be.Key)
	})

	t.Run("handler errors are wrapped", func(t *testing.T) {
		_, err := r.RunTask(context.Background(), TaskParams{Module: mod, Task: &config.Task{Name: "migrate"}})
		var be *errdefs.BackendExecutionError
		require.ErrorAs(t, err, &be)
		assert.Equal(t, "runTask", be.Action)
		assert.Equal(t, "task.migrate", be.Key)
		assert.False(t, be.Timeout)
		assert.ErrorContains(t, err, "exit status 1")
	})
}

func TestRegistry_Timeout(t *testing.T) {
	r := New()
	r.RegisterHandlers("slow", &Handlers{
		TestModule: func(ctx context.Context, p TestParams) (RunResult, error) {
			<-ctx.Done()
			return RunResult{}, errors.New("signal: killed")
		},
	})
	mod := &config.Module{Name: "api", Type: "slow"}
	test := &config.Test{Name: "unit", Module: "api", Timeout: 20 * time.Millisecond}

	_, err := r.TestModule(context.Background(), TestParams{Module: mod, Test: test})
	require.Error(t, err)
	assert.True(t, errdefs.IsTimeout(err))
	assert.ErrorContains(t, err, "test.api.unit timed out")
}

func TestRegistry_RegisterTwicePanics(t *testing.T) {
	r := New()
	r.RegisterHandlers("exec", &Handlers{})
	assert.Panics(t, func() { r.RegisterHandlers("exec", &Handlers{}) })
}

func TestRegistry_ValidateProject(t *testing.T) {
	r := New()
	r.RegisterHandlers("exec", &Handlers{
		Build: func(ctx context.Context, p BuildParams) (BuildOutput, error) { return BuildOutput{}, nil },
	})

	require.NoError(t, r.ValidateProject(&config.Project{Modules: []*config.Module{{Name: "a", Type: "exec"}}}))

	err := r.ValidateProject(&config.Project{Modules: []*config.Module{{Name: "a", Type: "helm"}}})
	var cfgErr *errdefs.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "modules.a.type", cfgErr.Path)

	err = r.ValidateProject(&config.Project{Modules: []*config.Module{
		{Name: "a", Type: "exec", Services: []*config.Service{{Name: "a"}}},
	}})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "modules.a.services", cfgErr.Path)
}
