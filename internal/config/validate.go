package config

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/gardengo/internal/errdefs"
)

// Validate normalizes a freshly loaded project in place and checks the
// invariants the rest of the engine relies on: qualified module names are
// unique, service and task names are unique project-wide, test names are
// unique per module and copy specs stay within their build directories.
func Validate(p *Project) error {
	if p.Variables == nil {
		p.Variables = make(map[string]any)
	}

	modules := make(map[string]*Module, len(p.Modules))
	runtimeNames := make(map[string]string)

	// Build dependencies of a plugin module refer to modules of the same
	// plugin when one has that name, and to project modules otherwise.
	pluginModules := make(map[string]bool)
	for _, m := range p.Modules {
		if m.Plugin != "" {
			pluginModules[QualifiedName(m.Plugin, m.Name)] = true
		}
	}

	for i, m := range p.Modules {
		if m.Name == "" {
			return &errdefs.ConfigurationError{Message: "module name is required", Path: fmt.Sprintf("modules[%d]", i)}
		}
		if m.Type == "" {
			return &errdefs.ConfigurationError{Message: "module type is required", Path: "modules." + m.Name}
		}

		if m.Plugin != "" {
			m.Name = QualifiedName(m.Plugin, m.Name)
			for j := range m.Build.Dependencies {
				if q := QualifiedName(m.Plugin, m.Build.Dependencies[j].Name); pluginModules[q] {
					m.Build.Dependencies[j].Name = q
				}
			}
		}
		modPath := "modules." + m.Name

		if prev, ok := modules[m.Name]; ok {
			return &errdefs.ConfigurationError{
				Message: fmt.Sprintf("module %q is declared in both %s and %s", m.Name, prev.ConfigPath, m.ConfigPath),
				Path:    modPath,
			}
		}
		modules[m.Name] = m

		if m.Path == "" {
			m.Path = p.Root
		}
		if m.Spec == nil {
			m.Spec = make(map[string]any)
		}
		if m.Outputs == nil {
			m.Outputs = make(map[string]any)
		}

		for j, dep := range m.Build.Dependencies {
			depPath := fmt.Sprintf("%s.build.dependencies[%d]", modPath, j)
			if dep.Name == "" {
				return &errdefs.ConfigurationError{Message: "dependency name is required", Path: depPath}
			}
			if dep.Name == m.Name {
				return &errdefs.ConfigurationError{Message: "module cannot depend on itself", Path: depPath}
			}
			if m.Build.Dependencies[j].Copy == nil {
				m.Build.Dependencies[j].Copy = []CopySpec{}
			}
			for k, c := range dep.Copy {
				if err := validateCopy(c); err != nil {
					return &errdefs.ConfigurationError{Message: err.Error(), Path: fmt.Sprintf("%s.copy[%d]", depPath, k)}
				}
			}
		}

		for _, s := range m.Services {
			s.Module = m.Name
			if err := claimName(runtimeNames, s.Name, modPath+".services"); err != nil {
				return err
			}
		}
		for _, t := range m.Tasks {
			t.Module = m.Name
			if err := claimName(runtimeNames, t.Name, modPath+".tasks"); err != nil {
				return err
			}
		}
		tests := make(map[string]bool)
		for _, t := range m.Tests {
			t.Module = m.Name
			if t.Name == "" {
				return &errdefs.ConfigurationError{Message: "test name is required", Path: modPath + ".tests"}
			}
			if tests[t.Name] {
				return &errdefs.ConfigurationError{Message: fmt.Sprintf("duplicate test %q", t.Name), Path: modPath + ".tests"}
			}
			tests[t.Name] = true
		}
	}
	return nil
}

// claimName registers a service or task name; both share one namespace so
// that runtime dependencies can refer to either by name alone.
func claimName(names map[string]string, name, cfgPath string) error {
	if name == "" {
		return &errdefs.ConfigurationError{Message: "name is required", Path: cfgPath}
	}
	if prev, ok := names[name]; ok {
		return &errdefs.ConfigurationError{
			Message: fmt.Sprintf("name %q is already used by %s", name, prev),
			Path:    cfgPath + "." + name,
		}
	}
	names[name] = cfgPath + "." + name
	return nil
}

func validateCopy(c CopySpec) error {
	if c.Source == "" {
		return fmt.Errorf("copy source is required")
	}
	for _, p := range []string{c.Source, c.Target} {
		if p == "" {
			continue
		}
		if filepath.IsAbs(p) || path.IsAbs(p) {
			return fmt.Errorf("copy path %q must be relative", p)
		}
		clean := path.Clean(filepath.ToSlash(p))
		if clean == ".." || strings.HasPrefix(clean, "../") {
			return fmt.Errorf("copy path %q escapes the build directory", p)
		}
	}
	return nil
}
