// Package runtimectx assembles the environment handed to a service, task
// or test run: the module version, project variables and the outputs of
// every dependency.
package runtimectx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/gardengo/internal/config"
)

// Dependency types as they appear in GARDEN_DEPENDENCIES.
const (
	TypeBuild   = "build"
	TypeService = "service"
	TypeTask    = "task"
	TypeTest    = "test"
)

// Environment variable names and prefixes.
const (
	EnvVersion      = "GARDEN_VERSION"
	EnvDependencies = "GARDEN_DEPENDENCIES"
	envVariables    = "GARDEN_VARIABLES_"
)

// Dependency describes one dependency of a runtime context.
type Dependency struct {
	ModuleName string         `json:"moduleName"`
	Name       string         `json:"name"`
	Outputs    map[string]any `json:"outputs"`
	Type       string         `json:"type"`
	Version    string         `json:"version"`
}

// Dependencies are the inputs to Prepare, grouped by type.
type Dependencies struct {
	Build   []Dependency
	Service []Dependency
	Task    []Dependency
	Test    []Dependency
}

// RuntimeContext is the environment of a run.
type RuntimeContext struct {
	EnvVars      map[string]string `json:"envVars"`
	Dependencies []Dependency      `json:"dependencies"`
}

// EnvVarName mangles a name into an environment variable name: upper case,
// with every character outside [A-Z0-9_] replaced by an underscore.
func EnvVarName(name string) string {
	upper := strings.ToUpper(name)
	var sb strings.Builder
	sb.Grow(len(upper))
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// Prepare builds the runtime context of a module at the given version.
// Dependencies are listed build first, then services, tasks and tests, each
// in the order given and without duplicate (type, name) pairs.
func Prepare(module *config.Module, version string, variables map[string]any, deps Dependencies) (RuntimeContext, error) {
	env := map[string]string{EnvVersion: version}

	for _, k := range sortedKeys(variables) {
		v, err := envValue(variables[k])
		if err != nil {
			return RuntimeContext{}, fmt.Errorf("variable %q: %w", k, err)
		}
		env[envVariables+EnvVarName(k)] = v
	}

	var all []Dependency
	seen := make(map[string]bool)
	groups := []struct {
		typ    string
		prefix string
		deps   []Dependency
	}{
		{TypeBuild, "GARDEN_MODULE_", deps.Build},
		{TypeService, "GARDEN_SERVICE_", deps.Service},
		{TypeTask, "GARDEN_TASK_", deps.Task},
		{TypeTest, "", deps.Test},
	}
	for _, g := range groups {
		for _, d := range g.deps {
			d.Type = g.typ
			id := d.Type + "\x00" + d.Name
			if seen[id] {
				continue
			}
			seen[id] = true
			if d.Outputs == nil {
				d.Outputs = map[string]any{}
			}
			all = append(all, d)

			if g.prefix == "" {
				continue
			}
			for _, k := range sortedKeys(d.Outputs) {
				v, err := envValue(d.Outputs[k])
				if err != nil {
					return RuntimeContext{}, fmt.Errorf("%s %s output %q: %w", d.Type, d.Name, k, err)
				}
				env[g.prefix+EnvVarName(d.Name)+"__OUTPUT_"+EnvVarName(k)] = v
			}
		}
	}
	if all == nil {
		all = []Dependency{}
	}

	encoded, err := json.Marshal(all)
	if err != nil {
		return RuntimeContext{}, fmt.Errorf("encoding dependencies of %s: %w", module.Name, err)
	}
	env[EnvDependencies] = string(encoded)

	// Outputs hold whatever the loaders produced (int64 from HCL, int from
	// YAML). Dependencies carries the decoded form so it matches what a
	// consumer reads back from GARDEN_DEPENDENCIES.
	var decoded []Dependency
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return RuntimeContext{}, fmt.Errorf("decoding dependencies of %s: %w", module.Name, err)
	}

	return RuntimeContext{EnvVars: env, Dependencies: decoded}, nil
}

// Environ returns the variables as KEY=value pairs in key order.
func (rc RuntimeContext) Environ() []string {
	keys := make([]string, 0, len(rc.EnvVars))
	for k := range rc.EnvVars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+rc.EnvVars[k])
	}
	return out
}

// envValue renders strings as-is and everything else as JSON.
func envValue(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
