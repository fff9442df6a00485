package yamlconfig

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type document struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`

	// Project fields.
	Variables map[string]any `yaml:"variables"`

	// Module fields.
	Type        string         `yaml:"type"`
	Plugin      string         `yaml:"plugin"`
	Description string         `yaml:"description"`
	Path        string         `yaml:"path"`
	Include     []string       `yaml:"include"`
	Exclude     []string       `yaml:"exclude"`
	Spec        map[string]any `yaml:"spec"`
	Outputs     map[string]any `yaml:"outputs"`
	Build       build          `yaml:"build"`
	Services    []runSpec      `yaml:"services"`
	Tasks       []runSpec      `yaml:"tasks"`
	Tests       []runSpec      `yaml:"tests"`
}

type build struct {
	Command      []string          `yaml:"command"`
	Timeout      string            `yaml:"timeout"`
	Dependencies []buildDependency `yaml:"dependencies"`
}

type buildDependency struct {
	Name string     `yaml:"name"`
	Copy []copySpec `yaml:"copy"`
}

// UnmarshalYAML accepts either a bare module name or a mapping.
func (d *buildDependency) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		d.Name = node.Value
		return nil
	case yaml.MappingNode:
		type plain buildDependency
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		*d = buildDependency(p)
		return nil
	}
	return fmt.Errorf("line %d: build dependency must be a name or a mapping", node.Line)
}

type copySpec struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

type runSpec struct {
	Name         string            `yaml:"name"`
	Dependencies []string          `yaml:"dependencies"`
	Command      []string          `yaml:"command"`
	Env          map[string]string `yaml:"env"`
	Timeout      string            `yaml:"timeout"`
	CacheResult  bool              `yaml:"cacheResult"`
}
