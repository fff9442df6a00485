package testutil

import (
	"context"
	"testing"

	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/configgraph"
	"github.com/specialistvlad/gardengo/internal/version"
	"github.com/stretchr/testify/require"
)

// StaticResolver versions modules by name and dependency versions only,
// without reading any files.
type StaticResolver struct{}

// TreeVersion implements version.Resolver.
func (StaticResolver) TreeVersion(_ context.Context, m *config.Module) (version.TreeVersion, error) {
	return version.TreeVersion{Digest: m.Name}, nil
}

// ModuleVersion implements version.Resolver.
func (StaticResolver) ModuleVersion(_ context.Context, m *config.Module, deps map[string]version.Version) (version.Version, error) {
	cfg, err := version.ConfigDigest(m)
	if err != nil {
		return version.Version{}, err
	}
	vs := make(map[string]string, len(deps))
	for k, v := range deps {
		vs[k] = v.VersionString
	}
	return version.Version{VersionString: version.Hash(cfg, m.Name, vs)}, nil
}

// NewGraph builds a configuration graph from modules with StaticResolver.
func NewGraph(t *testing.T, variables map[string]any, modules ...*config.Module) *configgraph.Graph {
	t.Helper()
	g, err := configgraph.New(context.Background(), &config.Project{
		Name:      "test",
		Root:      t.TempDir(),
		Variables: variables,
		Modules:   modules,
	}, StaticResolver{})
	require.NoError(t, err)
	return g
}

// BuildDeps returns name-only build dependencies.
func BuildDeps(names ...string) config.BuildConfig {
	deps := make([]config.BuildDependency, 0, len(names))
	for _, n := range names {
		deps = append(deps, config.BuildDependency{Name: n})
	}
	return config.BuildConfig{Dependencies: deps}
}
