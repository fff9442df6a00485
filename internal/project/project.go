// Package project ties a project directory to its configuration graph. It
// picks the configuration loader, validates the loaded model against the
// registered backends and memoizes the resulting graph.
package project

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/gardengo/internal/buildstage"
	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/configgraph"
	"github.com/specialistvlad/gardengo/internal/ctxlog"
	"github.com/specialistvlad/gardengo/internal/fsutil"
	"github.com/specialistvlad/gardengo/internal/hcl"
	"github.com/specialistvlad/gardengo/internal/registry"
	"github.com/specialistvlad/gardengo/internal/version"
	"github.com/specialistvlad/gardengo/internal/yamlconfig"
)

// Project is a loaded project directory.
type Project struct {
	root     string
	loader   config.Loader
	registry *registry.Registry
	resolver version.Resolver
	stager   *buildstage.BuildStager

	mu    sync.Mutex
	graph *configgraph.Graph
}

// Option customizes a Project.
type Option func(*Project)

// WithLoader overrides loader detection.
func WithLoader(l config.Loader) Option {
	return func(p *Project) { p.loader = l }
}

// WithResolver overrides the file based version resolver.
func WithResolver(r version.Resolver) Option {
	return func(p *Project) { p.resolver = r }
}

// New returns the project rooted at root. Modules are checked against the
// module types registered in reg.
func New(root string, reg *registry.Registry, opts ...Option) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	p := &Project{root: abs, registry: reg, stager: buildstage.New(abs)}
	for _, o := range opts {
		o(p)
	}
	if p.resolver == nil {
		r, err := version.NewResolver(version.DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		p.resolver = r
	}
	if p.loader == nil {
		l, err := DetectLoader(abs)
		if err != nil {
			return nil, err
		}
		p.loader = l
	}
	return p, nil
}

// DetectLoader returns the HCL loader when root holds .hcl files and the
// YAML loader when it holds garden.yml files.
func DetectLoader(root string) (config.Loader, error) {
	hclFiles, err := fsutil.FindFilesByExtension(root, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(hclFiles) > 0 {
		return hcl.NewLoader(), nil
	}
	for _, ext := range []string{".yml", ".yaml"} {
		files, err := fsutil.FindFilesByExtension(root, ext)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if yamlconfig.IsProjectFile(f) {
				return yamlconfig.NewLoader(), nil
			}
		}
	}
	return nil, fmt.Errorf("no project configuration found in %s", root)
}

// Root returns the absolute project directory.
func (p *Project) Root() string {
	return p.root
}

// Stager returns the build stager of the project.
func (p *Project) Stager() *buildstage.BuildStager {
	return p.stager
}

// ConfigGraph loads the configuration and builds its graph on first use.
// Later calls return the same graph until Reload.
func (p *Project) ConfigGraph(ctx context.Context) (*configgraph.Graph, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.graph != nil {
		return p.graph, nil
	}

	logger := ctxlog.FromContext(ctx)
	cfg, err := p.loader.Load(ctx, p.root)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if p.registry != nil {
		if err := p.registry.ValidateProject(cfg); err != nil {
			return nil, err
		}
	}

	g, err := configgraph.New(ctx, cfg, p.resolver)
	if err != nil {
		return nil, err
	}
	logger.Debug("Configuration graph built.", "project", cfg.Name, "modules", len(cfg.Modules))
	p.graph = g
	return g, nil
}

// Reload drops the memoized graph so the next ConfigGraph call reads the
// configuration and sources again.
func (p *Project) Reload() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.graph = nil
}
