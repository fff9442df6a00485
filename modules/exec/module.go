// Package exec is a backend for the "exec" module type. It runs the
// configured commands as local processes.
//
// Builds run build.command in the staged build directory and record the
// built version so later status probes report the build as ready. Services,
// tasks and tests run their command to completion with the runtime context
// environment. Lines of standard output of the form
//
//	::set-output key=value
//
// become outputs of the service, task or test. Results and service
// statuses are stored as JSON under <project>/.garden so cache checks
// survive restarts.
package exec

import (
	"github.com/specialistvlad/gardengo/internal/registry"
)

// TypeName is the module type served by this backend.
const TypeName = "exec"

// Module implements the registry.Module interface for this package.
type Module struct {
	// Root is the project root.
	Root string
}

// Register registers the exec handlers with the registry.
func (m *Module) Register(r *registry.Registry) {
	b := newBackend(m.Root)
	r.RegisterHandlers(TypeName, &registry.Handlers{
		GetBuildStatus:   b.getBuildStatus,
		Build:            b.build,
		GetServiceStatus: b.getServiceStatus,
		DeployService:    b.deployService,
		GetTaskResult:    b.getTaskResult,
		RunTask:          b.runTask,
		GetTestResult:    b.getTestResult,
		TestModule:       b.testModule,
	})
}
