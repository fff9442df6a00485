package hcl

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/ctxlog"
	"github.com/specialistvlad/gardengo/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

type parsedFile struct {
	path string
	root fileRoot
}

// Load parses every .hcl file under root. Project blocks are read first so
// that module expressions in any file can reference project variables.
func (l *Loader) Load(ctx context.Context, root string) (*config.Project, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "root", root)

	files, err := fsutil.FindFilesByExtension(root, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("finding HCL files: %w", err)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	parsed := make([]parsedFile, 0, len(files))
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var fr fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &fr)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		parsed = append(parsed, parsedFile{path: file, root: fr})
	}

	project := &config.Project{
		Name:      filepath.Base(root),
		Root:      root,
		Variables: make(map[string]any),
	}

	seenProject := ""
	for _, pf := range parsed {
		for _, pb := range pf.root.Projects {
			if seenProject != "" {
				return nil, fmt.Errorf("%s: project block already declared in %s", pf.path, seenProject)
			}
			seenProject = pf.path
			project.Name = pb.Name
			vars, err := evalMap(pb.Variables, nil, "project variables")
			if err != nil {
				return nil, fmt.Errorf("%s: %w", pf.path, err)
			}
			project.Variables = vars
		}
	}

	evalCtx, err := variablesContext(project.Variables)
	if err != nil {
		return nil, err
	}

	for _, pf := range parsed {
		for _, mb := range pf.root.Modules {
			m, err := translateModule(mb, pf.path, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("%s: module %q: %w", pf.path, mb.Name, err)
			}
			project.Modules = append(project.Modules, m)
		}
	}

	logger.Debug("HCL loading complete.", "project", project.Name, "modules", len(project.Modules))
	return project, nil
}

func translateModule(mb *moduleBlock, file string, evalCtx *hcl.EvalContext) (*config.Module, error) {
	dir := filepath.Dir(file)
	if mb.Path != "" {
		if filepath.IsAbs(mb.Path) {
			dir = mb.Path
		} else {
			dir = filepath.Join(dir, mb.Path)
		}
	}

	spec, err := evalMap(mb.Spec, evalCtx, "spec")
	if err != nil {
		return nil, err
	}
	outputs, err := evalMap(mb.Outputs, evalCtx, "outputs")
	if err != nil {
		return nil, err
	}

	m := &config.Module{
		Name:        mb.Name,
		Type:        mb.Type,
		Plugin:      mb.Plugin,
		Description: mb.Description,
		Path:        dir,
		ConfigPath:  file,
		Include:     mb.Include,
		Exclude:     mb.Exclude,
		Spec:        spec,
		Outputs:     outputs,
	}

	if b := mb.Build; b != nil {
		m.Build.Command = b.Command
		if m.Build.Timeout, err = parseTimeout(b.Timeout); err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
		for _, name := range b.Shorthand {
			m.Build.Dependencies = append(m.Build.Dependencies, config.BuildDependency{Name: name, Copy: []config.CopySpec{}})
		}
		for _, d := range b.Dependencies {
			dep := config.BuildDependency{Name: d.Name, Copy: []config.CopySpec{}}
			for _, c := range d.Copy {
				dep.Copy = append(dep.Copy, config.CopySpec{Source: c.Source, Target: c.Target})
			}
			m.Build.Dependencies = append(m.Build.Dependencies, dep)
		}
	}

	for _, s := range mb.Services {
		timeout, err := parseTimeout(s.Timeout)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", s.Name, err)
		}
		m.Services = append(m.Services, &config.Service{
			Name: s.Name, Module: mb.Name, Dependencies: s.Dependencies,
			Command: s.Command, Env: s.Env, Timeout: timeout,
		})
	}
	for _, t := range mb.Tasks {
		timeout, err := parseTimeout(t.Timeout)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", t.Name, err)
		}
		m.Tasks = append(m.Tasks, &config.Task{
			Name: t.Name, Module: mb.Name, Dependencies: t.Dependencies,
			Command: t.Command, Env: t.Env, CacheResult: t.CacheResult, Timeout: timeout,
		})
	}
	for _, t := range mb.Tests {
		timeout, err := parseTimeout(t.Timeout)
		if err != nil {
			return nil, fmt.Errorf("test %q: %w", t.Name, err)
		}
		m.Tests = append(m.Tests, &config.Test{
			Name: t.Name, Module: mb.Name, Dependencies: t.Dependencies,
			Command: t.Command, Env: t.Env, Timeout: timeout,
		})
	}
	return m, nil
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	return d, nil
}
