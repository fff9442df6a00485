package config

import (
	"strings"
	"time"
)

// Project is the unified representation of a loaded project.
type Project struct {
	Name string
	// Root is the absolute project directory.
	Root string
	// Variables are project-level variables exposed to every runtime context.
	Variables map[string]any
	Modules   []*Module
}

// Module is a named unit of source content.
type Module struct {
	Name string
	Type string
	// Plugin is set for modules contributed by a plugin. Their names are
	// qualified with the plugin name during validation.
	Plugin      string
	Description string
	// Path is the absolute directory holding the module sources.
	Path string
	// ConfigPath is the file the module was declared in.
	ConfigPath string
	Include    []string
	Exclude    []string
	Build      BuildConfig
	Services   []*Service
	Tasks      []*Task
	Tests      []*Test
	// Spec holds backend-specific settings for the module type.
	Spec map[string]any
	// Outputs are static values the module exposes to its dependants.
	Outputs map[string]any
}

// BuildConfig describes how a module is built.
type BuildConfig struct {
	Dependencies []BuildDependency
	Command      []string
	Timeout      time.Duration
}

// BuildDependency is a build-time dependency on another module. Copy lists
// files to copy from the dependency's build output into this module's build
// directory.
type BuildDependency struct {
	Name string
	Copy []CopySpec
}

// CopySpec copies Source (relative to the dependency build directory) to
// Target (relative to the dependant build directory). An empty Target
// copies into the build directory root.
type CopySpec struct {
	Source string
	Target string
}

// Service is a long-running unit deployed from a module.
type Service struct {
	Name   string
	Module string
	// Dependencies name services or tasks that must be ready first.
	Dependencies []string
	Command      []string
	Env          map[string]string
	Timeout      time.Duration
}

// Task is a run-to-completion unit executed from a module.
type Task struct {
	Name         string
	Module       string
	Dependencies []string
	Command      []string
	Env          map[string]string
	// CacheResult allows a successful result at the current version to be
	// reused instead of running the task again.
	CacheResult bool
	Timeout     time.Duration
}

// Test is a test suite of a module.
type Test struct {
	Name         string
	Module       string
	Dependencies []string
	Command      []string
	Env          map[string]string
	Timeout      time.Duration
}

// Key returns the unique test identifier, "<module>.<test>".
func (t *Test) Key() string {
	return t.Module + "." + t.Name
}

// NeedsCopy reports whether any build dependency declares file copies.
func (m *Module) NeedsCopy() bool {
	for _, dep := range m.Build.Dependencies {
		if len(dep.Copy) > 0 {
			return true
		}
	}
	return false
}

// QualifiedName returns the project-unique name of a module contributed by
// a plugin. Modules without a plugin keep their name.
func QualifiedName(plugin, name string) string {
	if plugin == "" || strings.HasPrefix(name, plugin+"--") {
		return name
	}
	return plugin + "--" + name
}
