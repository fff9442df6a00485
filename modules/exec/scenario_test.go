package exec_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/gardengo/internal/project"
	"github.com/specialistvlad/gardengo/internal/registry"
	"github.com/specialistvlad/gardengo/internal/scheduler"
	"github.com/specialistvlad/gardengo/internal/task"
	"github.com/specialistvlad/gardengo/internal/testutil"
	"github.com/specialistvlad/gardengo/modules/exec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const libConfig = `
module "lib" {
  type = "exec"
  build {
    command = ["sh", "-c", "mkdir -p dist && echo \"lib $GARDEN_VERSION\" > dist/lib.js"]
  }
}
`

const webConfig = `
module "web" {
  type = "exec"
  build {
    command = ["sh", "-c", "cat vendor/lib.js src.js > bundle.js"]
    dependency "lib" {
      copy {
        source = "dist/lib.js"
        target = "vendor/"
      }
    }
  }
  service "web" {
    command = ["sh", "-c", "echo ::set-output url=http://web:8080"]
  }
  task "smoke" {
    dependencies = ["web"]
    command      = ["sh", "-c", "echo \"::set-output deps=$GARDEN_DEPENDENCIES\""]
  }
  task "tick" {
    command = ["sh", "-c", "echo x >> ticks.log"]
  }
  task "once" {
    cache_result = true
    command      = ["sh", "-c", "echo x >> once.log"]
  }
}
`

func setup(t *testing.T) (string, func() *task.Env) {
	t.Helper()
	root := testutil.WriteFiles(t, map[string]string{
		"lib/garden.hcl": libConfig,
		"lib/lib.src":    "library",
		"web/garden.hcl": webConfig,
		"web/src.js":     "app();\n",
	})
	reg := registry.New()
	(&exec.Module{Root: root}).Register(reg)

	return root, func() *task.Env {
		p, err := project.New(root, reg)
		require.NoError(t, err)
		g, err := p.ConfigGraph(context.Background())
		require.NoError(t, err)
		return &task.Env{Graph: g, Router: reg, Stager: p.Stager()}
	}
}

func TestCopyScenario(t *testing.T) {
	root, newEnv := setup(t)
	ctx := context.Background()

	env := newEnv()
	roots, err := task.ForTasks(env, []string{"smoke"}, false, false)
	require.NoError(t, err)

	results, err := scheduler.New(scheduler.Options{}).ProcessTasks(ctx, roots, scheduler.ProcessOptions{ThrowOnError: true})
	require.NoError(t, err)

	libVersion, err := env.Graph.ModuleVersion("lib")
	require.NoError(t, err)

	bundle, err := os.ReadFile(filepath.Join(root, ".garden", "build", "web", "bundle.js"))
	require.NoError(t, err)
	assert.Equal(t, "lib "+libVersion.VersionString+"\napp();\n", string(bundle))

	build := results["build.web"].Output.(*task.BuildResult)
	assert.True(t, build.Fresh)

	status := results["deploy.web"].Output.(*registry.ServiceStatus)
	assert.Equal(t, "http://web:8080", status.Outputs["url"])

	smoke := results["task.smoke"].Output.(*registry.RunResult)
	assert.True(t, smoke.Success)
	assert.True(t, strings.Contains(smoke.Outputs["deps"].(string), `"name":"web"`), smoke.Outputs["deps"])

	t.Run("unchanged sources are not rebuilt", func(t *testing.T) {
		env := newEnv()
		roots, err := task.ForServices(env, nil, false, false, nil)
		require.NoError(t, err)

		results, err := scheduler.New(scheduler.Options{}).ProcessTasks(ctx, roots, scheduler.ProcessOptions{ThrowOnError: true})
		require.NoError(t, err)
		assert.False(t, results["build.lib"].Output.(*task.BuildResult).Fresh)
		assert.False(t, results["build.web"].Output.(*task.BuildResult).Fresh)
		assert.False(t, results["deploy.web"].Output.(*registry.ServiceStatus).Fresh)
	})

	t.Run("changed dependency sources rebuild dependants", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(root, "lib", "lib.src"), []byte("library v2"), 0o644))
		env := newEnv()
		roots, err := task.ForModules(ctx, env, []string{"web"}, false)
		require.NoError(t, err)

		results, err := scheduler.New(scheduler.Options{}).ProcessTasks(ctx, roots, scheduler.ProcessOptions{ThrowOnError: true})
		require.NoError(t, err)
		assert.True(t, results["build.lib"].Output.(*task.BuildResult).Fresh)
		assert.True(t, results["build.web"].Output.(*task.BuildResult).Fresh)
	})
}

func TestRerunOnSameScheduler(t *testing.T) {
	root, newEnv := setup(t)
	ctx := context.Background()
	s := scheduler.New(scheduler.Options{})
	env := newEnv()

	process := func() scheduler.Results {
		roots, err := task.ForTasks(env, []string{"tick", "once"}, false, false)
		require.NoError(t, err)
		results, err := s.ProcessTasks(ctx, roots, scheduler.ProcessOptions{ThrowOnError: true})
		require.NoError(t, err)
		return results
	}

	first := process()
	assert.True(t, first["build.lib"].Output.(*task.BuildResult).Fresh)
	assert.True(t, first["build.web"].Output.(*task.BuildResult).Fresh)

	second := process()
	assert.False(t, second["build.lib"].Output.(*task.BuildResult).Fresh)
	assert.False(t, second["build.web"].Output.(*task.BuildResult).Fresh)

	webDir := filepath.Join(root, ".garden", "build", "web")
	ticks, err := os.ReadFile(filepath.Join(webDir, "ticks.log"))
	require.NoError(t, err)
	assert.Equal(t, "x\nx\n", string(ticks), "uncached tasks run on every call")

	once, err := os.ReadFile(filepath.Join(webDir, "once.log"))
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(once), "cached task result is reused")
}
