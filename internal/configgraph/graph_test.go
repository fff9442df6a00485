package configgraph

import (
	"context"
	"sync"
	"testing"

	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/errdefs"
	"github.com/specialistvlad/gardengo/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver derives versions from module names and records the order in
// which modules were resolved.
type fakeResolver struct {
	mu    sync.Mutex
	order []string
	seen  map[string]map[string]version.Version
}

func (r *fakeResolver) TreeVersion(_ context.Context, m *config.Module) (version.TreeVersion, error) {
	return version.TreeVersion{Digest: m.Name}, nil
}

func (r *fakeResolver) ModuleVersion(_ context.Context, m *config.Module, deps map[string]version.Version) (version.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, m.Name)
	if r.seen == nil {
		r.seen = make(map[string]map[string]version.Version)
	}
	r.seen[m.Name] = deps
	depStrings := make(map[string]string, len(deps))
	for k, v := range deps {
		depStrings[k] = v.VersionString
	}
	return version.Version{VersionString: version.Hash("cfg", m.Name, depStrings)}, nil
}

func dep(name string) config.BuildDependency {
	return config.BuildDependency{Name: name}
}

func sampleProject() *config.Project {
	return &config.Project{
		Name:      "shop",
		Variables: map[string]any{"region": "eu"},
		Modules: []*config.Module{
			{Name: "base", Type: "exec"},
			{Name: "lib", Type: "exec", Build: config.BuildConfig{Dependencies: []config.BuildDependency{dep("base")}}},
			{
				Name:  "web",
				Type:  "exec",
				Build: config.BuildConfig{Dependencies: []config.BuildDependency{dep("lib")}},
				Services: []*config.Service{
					{Name: "web", Dependencies: []string{"db", "migrate"}},
				},
				Tests: []*config.Test{{Name: "e2e", Dependencies: []string{"web"}}},
			},
			{
				Name:     "db",
				Type:     "exec",
				Services: []*config.Service{{Name: "db"}},
				Tasks:    []*config.Task{{Name: "migrate", Dependencies: []string{"db"}}},
			},
		},
	}
}

func names[T any](items []T, name func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, name(it))
	}
	return out
}

func moduleNames(ms []*config.Module) []string {
	return names(ms, func(m *config.Module) string { return m.Name })
}

func TestNew_ResolvesVersionsInDependencyOrder(t *testing.T) {
	r := &fakeResolver{}
	g, err := New(context.Background(), sampleProject(), r)
	require.NoError(t, err)

	index := func(name string) int {
		for i, n := range r.order {
			if n == name {
				return i
			}
		}
		return -1
	}
	assert.Less(t, index("base"), index("lib"))
	assert.Less(t, index("lib"), index("web"))

	// web's version covers every transitive build dependency.
	assert.ElementsMatch(t, []string{"base", "lib"}, keys(r.seen["web"]))

	v, err := g.ModuleVersion("web")
	require.NoError(t, err)
	assert.Regexp(t, `^v-[0-9a-f]{10}$`, v.VersionString)
}

func keys(m map[string]version.Version) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestGraph_GetDependencies(t *testing.T) {
	g, err := New(context.Background(), sampleProject(), &fakeResolver{})
	require.NoError(t, err)

	t.Run("direct build dependencies", func(t *testing.T) {
		rel, err := g.GetDependencies(KindBuild, "web", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"lib"}, moduleNames(rel.Build))
		assert.Empty(t, rel.Service)
	})

	t.Run("recursive build dependencies", func(t *testing.T) {
		rel, err := g.GetDependencies(KindBuild, "web", true)
		require.NoError(t, err)
		assert.Equal(t, []string{"base", "lib"}, moduleNames(rel.Build))
	})

	t.Run("service includes its own module build", func(t *testing.T) {
		rel, err := g.GetDependencies(KindService, "web", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"web"}, moduleNames(rel.Build))
		assert.Equal(t, []string{"db"}, names(rel.Service, func(s *config.Service) string { return s.Name }))
		assert.Equal(t, []string{"migrate"}, names(rel.Task, func(t *config.Task) string { return t.Name }))
	})

	t.Run("test dependencies", func(t *testing.T) {
		rel, err := g.GetDependencies(KindTest, "web.e2e", true)
		require.NoError(t, err)
		assert.Equal(t, []string{"base", "db", "lib", "web"}, moduleNames(rel.Build))
		assert.Equal(t, []string{"db", "web"}, names(rel.Service, func(s *config.Service) string { return s.Name }))
	})

	t.Run("unknown node", func(t *testing.T) {
		_, err := g.GetDependencies(KindService, "nope", false)
		var nf *errdefs.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "service", nf.Kind)
	})
}

func TestGraph_GetDependants(t *testing.T) {
	g, err := New(context.Background(), sampleProject(), &fakeResolver{})
	require.NoError(t, err)

	rel, err := g.GetDependants(KindBuild, "base", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib", "web"}, moduleNames(rel.Build))
	assert.Equal(t, []string{"web"}, names(rel.Service, func(s *config.Service) string { return s.Name }))
	assert.Equal(t, []string{"web.e2e"}, names(rel.Test, func(t *config.Test) string { return t.Key() }))
}

func TestGraph_Lookups(t *testing.T) {
	g, err := New(context.Background(), sampleProject(), &fakeResolver{})
	require.NoError(t, err)

	ms, err := g.GetModules()
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "db", "lib", "web"}, moduleNames(ms))

	ms, err = g.GetModules("web", "lib", "web")
	require.NoError(t, err)
	assert.Equal(t, []string{"lib", "web"}, moduleNames(ms))

	_, err = g.GetModules("missing")
	assert.ErrorContains(t, err, `module "missing" not found`)

	test, err := g.GetTest("web.e2e")
	require.NoError(t, err)
	assert.Equal(t, "e2e", test.Name)

	tests, err := g.GetTests("web")
	require.NoError(t, err)
	assert.Len(t, tests, 1)

	task, err := g.GetTask("migrate")
	require.NoError(t, err)
	assert.Equal(t, "db", task.Module)

	assert.Equal(t, "eu", g.Variables()["region"])
}

func TestNew_ConfigurationErrors(t *testing.T) {
	t.Run("cycle names both members", func(t *testing.T) {
		p := &config.Project{Modules: []*config.Module{
			{Name: "a", Type: "exec", Build: config.BuildConfig{Dependencies: []config.BuildDependency{dep("b")}}},
			{Name: "b", Type: "exec", Build: config.BuildConfig{Dependencies: []config.BuildDependency{dep("a")}}},
		}}
		_, err := New(context.Background(), p, &fakeResolver{})

		var cfgErr *errdefs.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, []string{"build.a", "build.b", "build.a"}, cfgErr.Members)
		assert.Contains(t, err.Error(), "build.a -> build.b -> build.a")
	})

	t.Run("runtime cycle", func(t *testing.T) {
		p := &config.Project{Modules: []*config.Module{
			{Name: "m", Type: "exec", Services: []*config.Service{
				{Name: "x", Dependencies: []string{"y"}},
				{Name: "y", Dependencies: []string{"x"}},
			}},
		}}
		_, err := New(context.Background(), p, &fakeResolver{})
		var cfgErr *errdefs.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, []string{"service.x", "service.y", "service.x"}, cfgErr.Members)
	})

	t.Run("unknown build dependency", func(t *testing.T) {
		p := &config.Project{Modules: []*config.Module{
			{Name: "web", Type: "exec", Build: config.BuildConfig{Dependencies: []config.BuildDependency{dep("lib")}}},
		}}
		_, err := New(context.Background(), p, &fakeResolver{})
		var cfgErr *errdefs.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "modules.web.build.dependencies[0]", cfgErr.Path)
	})

	t.Run("unknown runtime dependency", func(t *testing.T) {
		p := &config.Project{Modules: []*config.Module{
			{Name: "web", Type: "exec", Services: []*config.Service{{Name: "web", Dependencies: []string{"cache"}}}},
		}}
		_, err := New(context.Background(), p, &fakeResolver{})
		var cfgErr *errdefs.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "modules.web.services.web.dependencies[0]", cfgErr.Path)
	})
}

func TestTopologicalOrder(t *testing.T) {
	g, err := New(context.Background(), sampleProject(), &fakeResolver{})
	require.NoError(t, err)

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	pos := make(map[string]int, len(order))
	for i, k := range order {
		pos[k] = i
	}
	assert.Less(t, pos["build.base"], pos["build.lib"])
	assert.Less(t, pos["service.db"], pos["task.migrate"])
	assert.Less(t, pos["task.migrate"], pos["service.web"])
	assert.Less(t, pos["service.web"], pos["test.web.e2e"])
}
