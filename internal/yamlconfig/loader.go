package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/ctxlog"
	"github.com/specialistvlad/gardengo/internal/fsutil"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// IsProjectFile reports whether name is a file this loader reads.
func IsProjectFile(name string) bool {
	base := filepath.Base(name)
	return base == "garden.yml" || base == "garden.yaml" ||
		strings.HasSuffix(base, ".garden.yml") || strings.HasSuffix(base, ".garden.yaml")
}

// Load reads every garden.yml/garden.yaml file under root.
func (l *Loader) Load(ctx context.Context, root string) (*config.Project, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, ext := range []string{".yml", ".yaml"} {
		found, err := fsutil.FindFilesByExtension(root, ext)
		if err != nil {
			return nil, fmt.Errorf("finding YAML files: %w", err)
		}
		for _, f := range found {
			if IsProjectFile(f) {
				files = append(files, f)
			}
		}
	}
	logger.Debug("Discovered YAML project files.", "count", len(files))

	project := &config.Project{
		Name:      filepath.Base(root),
		Root:      root,
		Variables: make(map[string]any),
	}
	projectFile := ""

	for _, file := range files {
		docs, err := readDocuments(file)
		if err != nil {
			return nil, err
		}
		for i, doc := range docs {
			switch doc.Kind {
			case "Project":
				if projectFile != "" {
					return nil, fmt.Errorf("%s: project already declared in %s", file, projectFile)
				}
				projectFile = file
				if doc.Name != "" {
					project.Name = doc.Name
				}
				if doc.Variables != nil {
					project.Variables = doc.Variables
				}
			case "Module":
				m, err := translateModule(doc, file)
				if err != nil {
					return nil, fmt.Errorf("%s: module %q: %w", file, doc.Name, err)
				}
				project.Modules = append(project.Modules, m)
			default:
				return nil, fmt.Errorf("%s: document %d: unknown kind %q", file, i, doc.Kind)
			}
		}
	}

	logger.Debug("YAML loading complete.", "project", project.Name, "modules", len(project.Modules))
	return project, nil
}

func readDocuments(file string) ([]document, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	var docs []document
	for {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", file, err)
		}
		if doc.Kind == "" && doc.Name == "" {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func translateModule(doc document, file string) (*config.Module, error) {
	dir := filepath.Dir(file)
	if doc.Path != "" {
		if filepath.IsAbs(doc.Path) {
			dir = doc.Path
		} else {
			dir = filepath.Join(dir, doc.Path)
		}
	}

	timeout, err := parseTimeout(doc.Build.Timeout)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}

	m := &config.Module{
		Name:        doc.Name,
		Type:        doc.Type,
		Plugin:      doc.Plugin,
		Description: doc.Description,
		Path:        dir,
		ConfigPath:  file,
		Include:     doc.Include,
		Exclude:     doc.Exclude,
		Spec:        doc.Spec,
		Outputs:     doc.Outputs,
		Build: config.BuildConfig{
			Command: doc.Build.Command,
			Timeout: timeout,
		},
	}
	for _, d := range doc.Build.Dependencies {
		dep := config.BuildDependency{Name: d.Name, Copy: []config.CopySpec{}}
		for _, c := range d.Copy {
			dep.Copy = append(dep.Copy, config.CopySpec{Source: c.Source, Target: c.Target})
		}
		m.Build.Dependencies = append(m.Build.Dependencies, dep)
	}

	for _, s := range doc.Services {
		t, err := parseTimeout(s.Timeout)
		if err != nil {
			return nil, fmt.Errorf("service %q: %w", s.Name, err)
		}
		m.Services = append(m.Services, &config.Service{
			Name: s.Name, Module: doc.Name, Dependencies: s.Dependencies,
			Command: s.Command, Env: s.Env, Timeout: t,
		})
	}
	for _, s := range doc.Tasks {
		t, err := parseTimeout(s.Timeout)
		if err != nil {
			return nil, fmt.Errorf("task %q: %w", s.Name, err)
		}
		m.Tasks = append(m.Tasks, &config.Task{
			Name: s.Name, Module: doc.Name, Dependencies: s.Dependencies,
			Command: s.Command, Env: s.Env, CacheResult: s.CacheResult, Timeout: t,
		})
	}
	for _, s := range doc.Tests {
		t, err := parseTimeout(s.Timeout)
		if err != nil {
			return nil, fmt.Errorf("test %q: %w", s.Name, err)
		}
		m.Tests = append(m.Tests, &config.Test{
			Name: s.Name, Module: doc.Name, Dependencies: s.Dependencies,
			Command: s.Command, Env: s.Env, Timeout: t,
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
