package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/gardengo/internal/registry"
)

// RecorderModule is a registry.Module whose handlers only record when they
// ran. It registers build, deploy, task and test handlers and no status
// handlers, so every action runs each time it is scheduled.
type RecorderModule struct {
	// Type is the module type to register, "recorder" when empty.
	Type string
	// Sleep delays every action, honoring cancellation.
	Sleep time.Duration
	// Fail makes the action with the given key fail, e.g. "build.lib".
	Fail map[string]error
	// Outputs are returned as service and task outputs by key.
	Outputs map[string]map[string]any

	mu      sync.Mutex
	records map[string]ExecutionRecord
	envs    map[string]map[string]string
}

// NewRecorderModule returns a RecorderModule for the "recorder" type.
func NewRecorderModule(sleep time.Duration) *RecorderModule {
	return &RecorderModule{
		Type:    "recorder",
		Sleep:   sleep,
		Fail:    make(map[string]error),
		Outputs: make(map[string]map[string]any),
	}
}

// Register implements registry.Module.
func (m *RecorderModule) Register(r *registry.Registry) {
	typ := m.Type
	if typ == "" {
		typ = "recorder"
	}
	r.RegisterHandlers(typ, &registry.Handlers{
		Build: func(ctx context.Context, p registry.BuildParams) (registry.BuildOutput, error) {
			return registry.BuildOutput{Log: "recorded"}, m.record(ctx, "build."+p.Module.Name, nil)
		},
		DeployService: func(ctx context.Context, p registry.ServiceParams) (registry.ServiceStatus, error) {
			key := "deploy." + p.Service.Name
			if err := m.record(ctx, key, p.Env); err != nil {
				return registry.ServiceStatus{}, err
			}
			return registry.ServiceStatus{State: registry.StateReady, Version: p.Version, Outputs: m.outputs(key), DeployedAt: time.Now()}, nil
		},
		RunTask: func(ctx context.Context, p registry.TaskParams) (registry.RunResult, error) {
			key := "task." + p.Task.Name
			start := time.Now()
			if err := m.record(ctx, key, p.Env); err != nil {
				return registry.RunResult{}, err
			}
			return registry.RunResult{ModuleName: p.Module.Name, Name: p.Task.Name, Version: p.Version, Success: true, Outputs: m.outputs(key), StartedAt: start, CompletedAt: time.Now()}, nil
		},
		TestModule: func(ctx context.Context, p registry.TestParams) (registry.RunResult, error) {
			key := "test." + p.Test.Key()
			start := time.Now()
			if err := m.record(ctx, key, p.Env); err != nil {
				return registry.RunResult{}, err
			}
			return registry.RunResult{ModuleName: p.Module.Name, Name: p.Test.Name, Version: p.Version, Success: true, StartedAt: start, CompletedAt: time.Now()}, nil
		},
	})
}

func (m *RecorderModule) record(ctx context.Context, key string, env map[string]string) error {
	start := time.Now()
	if m.Sleep > 0 {
		select {
		case <-time.After(m.Sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[string]ExecutionRecord)
		m.envs = make(map[string]map[string]string)
	}
	m.records[key] = ExecutionRecord{Start: start, End: time.Now()}
	m.envs[key] = env
	return m.Fail[key]
}

func (m *RecorderModule) outputs(key string) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Outputs[key]
}

// Records returns a copy of the execution records by action key.
func (m *RecorderModule) Records() map[string]ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]ExecutionRecord, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out
}

// Env returns the environment an action ran with.
func (m *RecorderModule) Env(key string) map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.envs[key]
}

// Overlap reports whether two execution records overlap in time.
func Overlap(a, b ExecutionRecord) bool {
	return !a.Start.After(b.End) && !b.Start.After(a.End)
}
