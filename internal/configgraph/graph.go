package configgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/ctxlog"
	"github.com/specialistvlad/gardengo/internal/dag"
	"github.com/specialistvlad/gardengo/internal/errdefs"
	"github.com/specialistvlad/gardengo/internal/version"
)

// Kind is the kind of a graph node.
type Kind string

const (
	KindBuild   Kind = "build"
	KindService Kind = "service"
	KindTask    Kind = "task"
	KindTest    Kind = "test"
)

// NodeKey returns the graph key of an entity, e.g. "build.web" or
// "test.web.unit". Test names are "<module>.<test>".
func NodeKey(kind Kind, name string) string {
	return string(kind) + "." + name
}

// ParseNodeKey splits a node key into its kind and name.
func ParseNodeKey(key string) (Kind, string) {
	kind, name, _ := strings.Cut(key, ".")
	return Kind(kind), name
}

// Relations groups related entities by kind. Each list is sorted by name.
type Relations struct {
	Build   []*config.Module
	Service []*config.Service
	Task    []*config.Task
	Test    []*config.Test
}

// Graph is the resolved project dependency graph.
type Graph struct {
	project  *config.Project
	modules  map[string]*config.Module
	services map[string]*config.Service
	tasks    map[string]*config.Task
	tests    map[string]*config.Test
	versions map[string]version.Version
	dag      *dag.Graph
}

// New validates the project, builds its dependency graph and resolves the
// version of every module. Unknown dependencies and cycles are reported as
// *errdefs.ConfigurationError.
func New(ctx context.Context, p *config.Project, resolver version.Resolver) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)

	if err := config.Validate(p); err != nil {
		return nil, err
	}

	g := &Graph{
		project:  p,
		modules:  make(map[string]*config.Module),
		services: make(map[string]*config.Service),
		tasks:    make(map[string]*config.Task),
		tests:    make(map[string]*config.Test),
		versions: make(map[string]version.Version),
		dag:      dag.New(),
	}

	for _, m := range p.Modules {
		g.modules[m.Name] = m
		g.dag.AddNode(NodeKey(KindBuild, m.Name))
		for _, s := range m.Services {
			g.services[s.Name] = s
			g.dag.AddNode(NodeKey(KindService, s.Name))
		}
		for _, t := range m.Tasks {
			g.tasks[t.Name] = t
			g.dag.AddNode(NodeKey(KindTask, t.Name))
		}
		for _, t := range m.Tests {
			g.tests[t.Key()] = t
			g.dag.AddNode(NodeKey(KindTest, t.Key()))
		}
	}

	for _, m := range p.Modules {
		if err := g.addModuleEdges(m); err != nil {
			return nil, err
		}
	}

	if err := g.dag.DetectCycles(); err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			return nil, errdefs.NewCycleError(cycle.Path)
		}
		return nil, err
	}

	if err := g.resolveVersions(ctx, resolver); err != nil {
		return nil, err
	}

	logger.Debug("Resolved configuration graph.",
		"modules", len(g.modules), "services", len(g.services), "tasks", len(g.tasks), "tests", len(g.tests))
	return g, nil
}

func (g *Graph) addModuleEdges(m *config.Module) error {
	buildKey := NodeKey(KindBuild, m.Name)
	modPath := "modules." + m.Name

	for i, dep := range m.Build.Dependencies {
		if _, ok := g.modules[dep.Name]; !ok {
			return &errdefs.ConfigurationError{
				Message: fmt.Sprintf("unknown build dependency %q", dep.Name),
				Path:    fmt.Sprintf("%s.build.dependencies[%d]", modPath, i),
			}
		}
		if err := g.dag.AddEdge(NodeKey(KindBuild, dep.Name), buildKey); err != nil {
			return err
		}
	}

	for _, s := range m.Services {
		if err := g.addRuntimeEdges(NodeKey(KindService, s.Name), buildKey, s.Dependencies, fmt.Sprintf("%s.services.%s", modPath, s.Name)); err != nil {
			return err
		}
	}
	for _, t := range m.Tasks {
		if err := g.addRuntimeEdges(NodeKey(KindTask, t.Name), buildKey, t.Dependencies, fmt.Sprintf("%s.tasks.%s", modPath, t.Name)); err != nil {
			return err
		}
	}
	for _, t := range m.Tests {
		if err := g.addRuntimeEdges(NodeKey(KindTest, t.Key()), buildKey, t.Dependencies, fmt.Sprintf("%s.tests.%s", modPath, t.Name)); err != nil {
			return err
		}
	}
	return nil
}

// addRuntimeEdges links a service, task or test to the build of its own
// module and to the services and tasks it names.
func (g *Graph) addRuntimeEdges(key, buildKey string, deps []string, cfgPath string) error {
	if err := g.dag.AddEdge(buildKey, key); err != nil {
		return err
	}
	for i, name := range deps {
		var depKey string
		switch {
		case g.services[name] != nil:
			depKey = NodeKey(KindService, name)
		case g.tasks[name] != nil:
			depKey = NodeKey(KindTask, name)
		default:
			return &errdefs.ConfigurationError{
				Message: fmt.Sprintf("unknown runtime dependency %q", name),
				Path:    fmt.Sprintf("%s.dependencies[%d]", cfgPath, i),
			}
		}
		if depKey == key {
			return errdefs.NewCycleError([]string{key, key})
		}
		if err := g.dag.AddEdge(depKey, key); err != nil {
			return err
		}
	}
	return nil
}

// resolveVersions computes module versions in dependency order so that
// every build dependency is resolved before its dependants.
func (g *Graph) resolveVersions(ctx context.Context, resolver version.Resolver) error {
	order, err := g.dag.TopologicalOrder()
	if err != nil {
		return err
	}
	for _, key := range order {
		kind, name := ParseNodeKey(key)
		if kind != KindBuild {
			continue
		}
		ancestors, err := g.dag.Ancestors(key)
		if err != nil {
			return err
		}
		deps := make(map[string]version.Version, len(ancestors))
		for _, a := range ancestors {
			if k, n := ParseNodeKey(a); k == KindBuild {
				deps[n] = g.versions[n]
			}
		}
		v, err := resolver.ModuleVersion(ctx, g.modules[name], deps)
		if err != nil {
			return fmt.Errorf("resolving version of module %s: %w", name, err)
		}
		g.versions[name] = v
	}
	return nil
}

// Project returns the project the graph was built from.
func (g *Graph) Project() *config.Project {
	return g.project
}

// Variables returns the project variables.
func (g *Graph) Variables() map[string]any {
	return g.project.Variables
}

// GetModule returns the module with the given name.
func (g *Graph) GetModule(name string) (*config.Module, error) {
	if m, ok := g.modules[name]; ok {
		return m, nil
	}
	return nil, &errdefs.NotFoundError{Kind: "module", Name: name}
}

// GetService returns the service with the given name.
func (g *Graph) GetService(name string) (*config.Service, error) {
	if s, ok := g.services[name]; ok {
		return s, nil
	}
	return nil, &errdefs.NotFoundError{Kind: "service", Name: name}
}

// GetTask returns the task with the given name.
func (g *Graph) GetTask(name string) (*config.Task, error) {
	if t, ok := g.tasks[name]; ok {
		return t, nil
	}
	return nil, &errdefs.NotFoundError{Kind: "task", Name: name}
}

// GetTest returns the test with the given "<module>.<test>" key.
func (g *Graph) GetTest(key string) (*config.Test, error) {
	if t, ok := g.tests[key]; ok {
		return t, nil
	}
	return nil, &errdefs.NotFoundError{Kind: "test", Name: key}
}

// ModuleVersion returns the resolved version of a module.
func (g *Graph) ModuleVersion(name string) (version.Version, error) {
	if v, ok := g.versions[name]; ok {
		return v, nil
	}
	return version.Version{}, &errdefs.NotFoundError{Kind: "module", Name: name}
}

// GetModules returns the named modules, or all modules when no names are
// given, sorted by name.
func (g *Graph) GetModules(names ...string) ([]*config.Module, error) {
	return pick(g.modules, "module", names)
}

// GetServices returns the named services, or all services, sorted by name.
func (g *Graph) GetServices(names ...string) ([]*config.Service, error) {
	return pick(g.services, "service", names)
}

// GetTasks returns the named tasks, or all tasks, sorted by name.
func (g *Graph) GetTasks(names ...string) ([]*config.Task, error) {
	return pick(g.tasks, "task", names)
}

// GetTests returns the tests of the named modules, or all tests, sorted by
// key.
func (g *Graph) GetTests(modules ...string) ([]*config.Test, error) {
	if len(modules) == 0 {
		return pick(g.tests, "test", nil)
	}
	var out []*config.Test
	for _, name := range modules {
		m, err := g.GetModule(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m.Tests...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func pick[T any](all map[string]T, kind string, names []string) ([]T, error) {
	if len(names) == 0 {
		names = make([]string, 0, len(all))
		for name := range all {
			names = append(names, name)
		}
	} else {
		names = append([]string(nil), names...)
	}
	sort.Strings(names)

	out := make([]T, 0, len(names))
	for i, name := range names {
		if i > 0 && names[i-1] == name {
			continue
		}
		v, ok := all[name]
		if !ok {
			return nil, &errdefs.NotFoundError{Kind: kind, Name: name}
		}
		out = append(out, v)
	}
	return out, nil
}

// GetDependencies returns what the given node depends on. For services,
// tasks and tests the build of their own module is a build relation.
// Recursive queries return transitive dependencies.
func (g *Graph) GetDependencies(kind Kind, name string, recursive bool) (Relations, error) {
	key := NodeKey(kind, name)
	if !g.dag.HasNode(key) {
		return Relations{}, &errdefs.NotFoundError{Kind: string(kind), Name: name}
	}
	var keys []string
	var err error
	if recursive {
		keys, err = g.dag.Ancestors(key)
	} else {
		keys, err = g.dag.Dependencies(key)
	}
	if err != nil {
		return Relations{}, err
	}
	return g.relations(keys), nil
}

// GetDependants returns the nodes that depend on the given node.
func (g *Graph) GetDependants(kind Kind, name string, recursive bool) (Relations, error) {
	key := NodeKey(kind, name)
	if !g.dag.HasNode(key) {
		return Relations{}, &errdefs.NotFoundError{Kind: string(kind), Name: name}
	}
	var keys []string
	var err error
	if recursive {
		keys, err = g.dag.Descendants(key)
	} else {
		keys, err = g.dag.Dependents(key)
	}
	if err != nil {
		return Relations{}, err
	}
	return g.relations(keys), nil
}

// relations maps sorted node keys to entities. Keys of one kind share a
// prefix, so each list comes out sorted by name.
func (g *Graph) relations(keys []string) Relations {
	var r Relations
	for _, key := range keys {
		kind, name := ParseNodeKey(key)
		switch kind {
		case KindBuild:
			r.Build = append(r.Build, g.modules[name])
		case KindService:
			r.Service = append(r.Service, g.services[name])
		case KindTask:
			r.Task = append(r.Task, g.tasks[name])
		case KindTest:
			r.Test = append(r.Test, g.tests[name])
		}
	}
	return r
}

// TopologicalOrder returns every node key ordered so that dependencies come
// before their dependants. Ties are broken lexically.
func (g *Graph) TopologicalOrder() ([]string, error) {
	return g.dag.TopologicalOrder()
}
