package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Projects []*projectBlock `hcl:"project,block"`
	Modules  []*moduleBlock  `hcl:"module,block"`
	Remain   hcl.Body        `hcl:",remain"`
}

type projectBlock struct {
	Name      string         `hcl:"name,label"`
	Variables hcl.Expression `hcl:"variables,optional"`
}

type moduleBlock struct {
	Name        string         `hcl:"name,label"`
	Type        string         `hcl:"type"`
	Plugin      string         `hcl:"plugin,optional"`
	Description string         `hcl:"description,optional"`
	Path        string         `hcl:"path,optional"`
	Include     []string       `hcl:"include,optional"`
	Exclude     []string       `hcl:"exclude,optional"`
	Spec        hcl.Expression `hcl:"spec,optional"`
	Outputs     hcl.Expression `hcl:"outputs,optional"`
	Build       *buildBlock    `hcl:"build,block"`
	Services    []*runBlock    `hcl:"service,block"`
	Tasks       []*runBlock    `hcl:"task,block"`
	Tests       []*runBlock    `hcl:"test,block"`
}

type buildBlock struct {
	Command      []string           `hcl:"command,optional"`
	Timeout      string             `hcl:"timeout,optional"`
	Shorthand    []string           `hcl:"dependencies,optional"`
	Dependencies []*dependencyBlock `hcl:"dependency,block"`
}

type dependencyBlock struct {
	Name string       `hcl:"name,label"`
	Copy []*copyBlock `hcl:"copy,block"`
}

type copyBlock struct {
	Source string `hcl:"source"`
	Target string `hcl:"target,optional"`
}

// runBlock is shared by service, task and test blocks.
type runBlock struct {
	Name         string            `hcl:"name,label"`
	Dependencies []string          `hcl:"dependencies,optional"`
	Command      []string          `hcl:"command,optional"`
	Env          map[string]string `hcl:"env,optional"`
	Timeout      string            `hcl:"timeout,optional"`
	CacheResult  bool              `hcl:"cache_result,optional"`
}
