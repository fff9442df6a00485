package app

import (
	"github.com/specialistvlad/gardengo/internal/registry"
	"github.com/specialistvlad/gardengo/modules/exec"
)

// coreModules is the list of backends compiled into the gardengo binary.
func coreModules(projectRoot string) []registry.Module {
	return []registry.Module{
		&exec.Module{Root: projectRoot},
	}
}
