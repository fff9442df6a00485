package registry

import (
	"fmt"

	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/errdefs"
)

// ValidateProject checks that every module in the project has a registered
// type and that modules declaring services, tasks or tests have a handler
// able to run them.
func (r *Registry) ValidateProject(p *config.Project) error {
	for _, m := range p.Modules {
		path := "modules." + m.Name
		if r.lookup(m.Type) == nil {
			return &errdefs.ConfigurationError{
				Message: fmt.Sprintf("unknown module type %q (registered: %v)", m.Type, r.Types()),
				Path:    path + ".type",
			}
		}
		checks := []struct {
			present bool
			action  Action
			field   string
		}{
			{len(m.Services) > 0, ActionDeployService, "services"},
			{len(m.Tasks) > 0, ActionRunTask, "tasks"},
			{len(m.Tests) > 0, ActionTestModule, "tests"},
		}
		for _, c := range checks {
			if c.present && !r.HasHandler(m.Type, c.action) {
				return &errdefs.ConfigurationError{
					Message: fmt.Sprintf("module type %q does not support %s", m.Type, c.field),
					Path:    path + "." + c.field,
				}
			}
		}
	}
	return nil
}
