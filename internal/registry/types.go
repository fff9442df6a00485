package registry

import (
	"context"
	"time"

	"github.com/specialistvlad/gardengo/internal/config"
)

// Action names a backend operation.
type Action string

const (
	ActionGetBuildStatus   Action = "getBuildStatus"
	ActionBuild            Action = "build"
	ActionGetServiceStatus Action = "getServiceStatus"
	ActionDeployService    Action = "deployService"
	ActionGetTaskResult    Action = "getTaskResult"
	ActionRunTask          Action = "runTask"
	ActionGetTestResult    Action = "getTestResult"
	ActionTestModule       Action = "testModule"
)

// Service states reported by backends.
const (
	StateReady     = "ready"
	StateDeploying = "deploying"
	StateMissing   = "missing"
	StateUnhealthy = "unhealthy"
)

// BuildParams are passed to build actions.
type BuildParams struct {
	Module  *config.Module
	Version string
	// BuildDir is the staged build directory of the module.
	BuildDir string
}

// BuildStatus reports whether a build at the current version exists.
type BuildStatus struct {
	Ready bool
}

// BuildOutput is what a backend returns from a build.
type BuildOutput struct {
	Log     string
	Details map[string]any
}

// ServiceParams are passed to service actions.
type ServiceParams struct {
	Module    *config.Module
	Service   *config.Service
	Version   string
	BuildDir  string
	Env       map[string]string
	HotReload bool
}

// ServiceStatus is the observed state of a deployed service.
type ServiceStatus struct {
	State      string         `json:"state"`
	Version    string         `json:"version"`
	Outputs    map[string]any `json:"outputs"`
	DeployedAt time.Time      `json:"deployedAt"`
	// Fresh is set when the status results from a deployment in this run.
	Fresh bool `json:"-"`
}

// TaskParams are passed to task actions.
type TaskParams struct {
	Module   *config.Module
	Task     *config.Task
	Version  string
	BuildDir string
	Env      map[string]string
}

// TestParams are passed to test actions.
type TestParams struct {
	Module   *config.Module
	Test     *config.Test
	Version  string
	BuildDir string
	Env      map[string]string
}

// RunResult is the outcome of a task or test run.
type RunResult struct {
	ModuleName  string         `json:"moduleName"`
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Success     bool           `json:"success"`
	Log         string         `json:"log"`
	Outputs     map[string]any `json:"outputs"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt time.Time      `json:"completedAt"`
}

// Handlers are the action implementations for one module type. Any field
// may be nil when the backend does not support that action.
type Handlers struct {
	GetBuildStatus   func(ctx context.Context, p BuildParams) (BuildStatus, error)
	Build            func(ctx context.Context, p BuildParams) (BuildOutput, error)
	GetServiceStatus func(ctx context.Context, p ServiceParams) (ServiceStatus, error)
	DeployService    func(ctx context.Context, p ServiceParams) (ServiceStatus, error)
	GetTaskResult    func(ctx context.Context, p TaskParams) (*RunResult, error)
	RunTask          func(ctx context.Context, p TaskParams) (RunResult, error)
	GetTestResult    func(ctx context.Context, p TestParams) (*RunResult, error)
	TestModule       func(ctx context.Context, p TestParams) (RunResult, error)
}

func (h *Handlers) has(action Action) bool {
	switch action {
	case ActionGetBuildStatus:
		return h.GetBuildStatus != nil
	case ActionBuild:
		return h.Build != nil
	case ActionGetServiceStatus:
		return h.GetServiceStatus != nil
	case ActionDeployService:
		return h.DeployService != nil
	case ActionGetTaskResult:
		return h.GetTaskResult != nil
	case ActionRunTask:
		return h.RunTask != nil
	case ActionGetTestResult:
		return h.GetTestResult != nil
	case ActionTestModule:
		return h.TestModule != nil
	}
	return false
}

// Router dispatches backend actions. It is implemented by *Registry.
type Router interface {
	HasHandler(moduleType string, action Action) bool
	GetBuildStatus(ctx context.Context, p BuildParams) (BuildStatus, error)
	Build(ctx context.Context, p BuildParams) (BuildOutput, error)
	GetServiceStatus(ctx context.Context, p ServiceParams) (ServiceStatus, error)
	DeployService(ctx context.Context, p ServiceParams) (ServiceStatus, error)
	GetTaskResult(ctx context.Context, p TaskParams) (*RunResult, error)
	RunTask(ctx context.Context, p TaskParams) (RunResult, error)
	GetTestResult(ctx context.Context, p TestParams) (*RunResult, error)
	TestModule(ctx context.Context, p TestParams) (RunResult, error)
}
