package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/gardengo/internal/registry"
)

// ExecutionRecord holds the start and end times of a single backend call.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// FakeRouter is an in-memory registry.Router that records every call.
// Calls are keyed by action and target, e.g. "build.web",
// "getBuildStatus.web", "deploy.api", "task.migrate" or "test.web.unit".
type FakeRouter struct {
	// NoBuild lists module types without a build handler.
	NoBuild map[string]bool
	// Ready lists modules whose build is already up to date.
	Ready map[string]bool
	// Fail makes the call with the given key return the error.
	Fail map[string]error
	// Unsuccessful lists task and test keys whose runs report failure.
	Unsuccessful map[string]bool
	// Outputs are returned as service, task and test outputs by key.
	Outputs map[string]map[string]any
	// Sleep delays every recorded call.
	Sleep time.Duration

	mu       sync.Mutex
	calls    map[string]int
	records  map[string]*ExecutionRecord
	order    []string
	envs     map[string]map[string]string
	services map[string]registry.ServiceStatus
	runs     map[string]*registry.RunResult
}

var _ registry.Router = (*FakeRouter)(nil)

// NewFakeRouter returns an empty FakeRouter.
func NewFakeRouter() *FakeRouter {
	return &FakeRouter{
		NoBuild:      make(map[string]bool),
		Ready:        make(map[string]bool),
		Fail:         make(map[string]error),
		Unsuccessful: make(map[string]bool),
		Outputs:      make(map[string]map[string]any),
		calls:        make(map[string]int),
		records:      make(map[string]*ExecutionRecord),
		envs:         make(map[string]map[string]string),
		services:     make(map[string]registry.ServiceStatus),
		runs:         make(map[string]*registry.RunResult),
	}
}

// Count returns how often the call with the given key was made.
func (r *FakeRouter) Count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[key]
}

// Order returns the keys of completed build, deploy, task and test calls
// in completion order.
func (r *FakeRouter) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Record returns the execution record of a call.
func (r *FakeRouter) Record(key string) *ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[key]
}

// Env returns the environment passed to a call.
func (r *FakeRouter) Env(key string) map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.envs[key]
}

func (r *FakeRouter) count(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[key]++
	return r.Fail[key]
}

// run records an execution of key, honoring Sleep and cancellation.
func (r *FakeRouter) run(ctx context.Context, key string, env map[string]string) error {
	r.mu.Lock()
	r.calls[key]++
	failure := r.Fail[key]
	r.envs[key] = env
	r.mu.Unlock()

	start := time.Now()
	if r.Sleep > 0 {
		select {
		case <-time.After(r.Sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[key] = &ExecutionRecord{Start: start, End: time.Now()}
	r.order = append(r.order, key)
	return failure
}

// HasHandler implements registry.Router.
func (r *FakeRouter) HasHandler(moduleType string, action registry.Action) bool {
	if action == registry.ActionBuild {
		return !r.NoBuild[moduleType]
	}
	return true
}

// GetBuildStatus implements registry.Router.
func (r *FakeRouter) GetBuildStatus(_ context.Context, p registry.BuildParams) (registry.BuildStatus, error) {
	if err := r.count("getBuildStatus." + p.Module.Name); err != nil {
		return registry.BuildStatus{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return registry.BuildStatus{Ready: r.Ready[p.Module.Name]}, nil
}

// Build implements registry.Router.
func (r *FakeRouter) Build(ctx context.Context, p registry.BuildParams) (registry.BuildOutput, error) {
	if err := r.run(ctx, "build."+p.Module.Name, nil); err != nil {
		return registry.BuildOutput{}, err
	}
	return registry.BuildOutput{Log: fmt.Sprintf("built %s at %s", p.Module.Name, p.Version)}, nil
}

// GetServiceStatus implements registry.Router.
func (r *FakeRouter) GetServiceStatus(_ context.Context, p registry.ServiceParams) (registry.ServiceStatus, error) {
	if err := r.count("getServiceStatus." + p.Service.Name); err != nil {
		return registry.ServiceStatus{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.services[p.Service.Name]; ok {
		return st, nil
	}
	return registry.ServiceStatus{State: registry.StateMissing}, nil
}

// DeployService implements registry.Router.
func (r *FakeRouter) DeployService(ctx context.Context, p registry.ServiceParams) (registry.ServiceStatus, error) {
	key := "deploy." + p.Service.Name
	if err := r.run(ctx, key, p.Env); err != nil {
		return registry.ServiceStatus{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	st := registry.ServiceStatus{
		State:      registry.StateReady,
		Version:    p.Version,
		Outputs:    r.Outputs[key],
		DeployedAt: time.Now(),
	}
	r.services[p.Service.Name] = st
	return st, nil
}

// GetTaskResult implements registry.Router.
func (r *FakeRouter) GetTaskResult(_ context.Context, p registry.TaskParams) (*registry.RunResult, error) {
	key := "task." + p.Task.Name
	if err := r.count("getTaskResult." + p.Task.Name); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[key], nil
}

// RunTask implements registry.Router.
func (r *FakeRouter) RunTask(ctx context.Context, p registry.TaskParams) (registry.RunResult, error) {
	return r.runAndStore(ctx, "task."+p.Task.Name, p.Module.Name, p.Task.Name, p.Version, p.Env)
}

// GetTestResult implements registry.Router.
func (r *FakeRouter) GetTestResult(_ context.Context, p registry.TestParams) (*registry.RunResult, error) {
	key := "test." + p.Test.Key()
	if err := r.count("getTestResult." + p.Test.Key()); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[key], nil
}

// TestModule implements registry.Router.
func (r *FakeRouter) TestModule(ctx context.Context, p registry.TestParams) (registry.RunResult, error) {
	return r.runAndStore(ctx, "test."+p.Test.Key(), p.Module.Name, p.Test.Key(), p.Version, p.Env)
}

func (r *FakeRouter) runAndStore(ctx context.Context, key, module, name, version string, env map[string]string) (registry.RunResult, error) {
	start := time.Now()
	if err := r.run(ctx, key, env); err != nil {
		return registry.RunResult{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res := registry.RunResult{
		ModuleName:  module,
		Name:        name,
		Version:     version,
		Success:     !r.Unsuccessful[key],
		Log:         "ran " + key,
		Outputs:     r.Outputs[key],
		StartedAt:   start,
		CompletedAt: time.Now(),
	}
	r.runs[key] = &res
	return res, nil
}
