package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/specialistvlad/gardengo/internal/ctxlog"
	"github.com/specialistvlad/gardengo/internal/errdefs"
)

// Module is the interface that all plugins must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the handlers of every registered module type for a single
// application instance.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]*Handlers
	// DefaultTimeout applies to actions whose configuration sets none.
	// Zero means no limit.
	DefaultTimeout time.Duration
}

var _ Router = (*Registry)(nil)

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{handlers: make(map[string]*Handlers)}
}

// RegisterHandlers registers the handlers for a module type.
func (r *Registry) RegisterHandlers(moduleType string, h *Handlers) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[moduleType]; exists {
		panic(fmt.Sprintf("handlers for module type '%s' already registered", moduleType))
	}
	slog.Debug("Registering module type handlers.", "type", moduleType)
	r.handlers[moduleType] = h
}

// Types returns the registered module types in lexical order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) lookup(moduleType string) *Handlers {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[moduleType]
}

// HasHandler reports whether the module type implements the action.
func (r *Registry) HasHandler(moduleType string, action Action) bool {
	h := r.lookup(moduleType)
	return h != nil && h.has(action)
}

// call runs fn under the action timeout and wraps its failure.
func call[T any](ctx context.Context, r *Registry, action Action, key string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = r.DefaultTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Dispatching backend action.", "action", action, "key", key)

	out, err := fn(ctx)
	if err != nil {
		be := errdefs.NewBackendError(string(action), key, err)
		if ctx.Err() == context.DeadlineExceeded {
			be.Timeout = true
		}
		return out, be
	}
	return out, nil
}

func missing(action Action, moduleType, key string) error {
	return errdefs.NewBackendError(string(action), key,
		fmt.Errorf("module type %q does not implement %s", moduleType, action))
}

// GetBuildStatus implements Router. Module types without a status handler
// are never ready.
func (r *Registry) GetBuildStatus(ctx context.Context, p BuildParams) (BuildStatus, error) {
	h := r.lookup(p.Module.Type)
	if h == nil || h.GetBuildStatus == nil {
		return BuildStatus{}, nil
	}
	return call(ctx, r, ActionGetBuildStatus, "build."+p.Module.Name, p.Module.Build.Timeout, func(ctx context.Context) (BuildStatus, error) {
		return h.GetBuildStatus(ctx, p)
	})
}

// Build implements Router. Module types without a build handler have
// nothing to do beyond the staged file copies.
func (r *Registry) Build(ctx context.Context, p BuildParams) (BuildOutput, error) {
	h := r.lookup(p.Module.Type)
	if h == nil || h.Build == nil {
		return BuildOutput{}, nil
	}
	return call(ctx, r, ActionBuild, "build."+p.Module.Name, p.Module.Build.Timeout, func(ctx context.Context) (BuildOutput, error) {
		return h.Build(ctx, p)
	})
}

// GetServiceStatus implements Router. Without a handler the service is
// reported missing.
func (r *Registry) GetServiceStatus(ctx context.Context, p ServiceParams) (ServiceStatus, error) {
	h := r.lookup(p.Module.Type)
	if h == nil || h.GetServiceStatus == nil {
		return ServiceStatus{State: StateMissing}, nil
	}
	return call(ctx, r, ActionGetServiceStatus, "deploy."+p.Service.Name, p.Service.Timeout, func(ctx context.Context) (ServiceStatus, error) {
		return h.GetServiceStatus(ctx, p)
	})
}

// DeployService implements Router.
func (r *Registry) DeployService(ctx context.Context, p ServiceParams) (ServiceStatus, error) {
	key := "deploy." + p.Service.Name
	h := r.lookup(p.Module.Type)
	if h == nil || h.DeployService == nil {
		return ServiceStatus{}, missing(ActionDeployService, p.Module.Type, key)
	}
	return call(ctx, r, ActionDeployService, key, p.Service.Timeout, func(ctx context.Context) (ServiceStatus, error) {
		return h.DeployService(ctx, p)
	})
}

// GetTaskResult implements Router. A nil result means no stored result.
func (r *Registry) GetTaskResult(ctx context.Context, p TaskParams) (*RunResult, error) {
	h := r.lookup(p.Module.Type)
	if h == nil || h.GetTaskResult == nil {
		return nil, nil
	}
	return call(ctx, r, ActionGetTaskResult, "task."+p.Task.Name, p.Task.Timeout, func(ctx context.Context) (*RunResult, error) {
		return h.GetTaskResult(ctx, p)
	})
}

// RunTask implements Router.
func (r *Registry) RunTask(ctx context.Context, p TaskParams) (RunResult, error) {
	key := "task." + p.Task.Name
	h := r.lookup(p.Module.Type)
	if h == nil || h.RunTask == nil {
		return RunResult{}, missing(ActionRunTask, p.Module.Type, key)
	}
	return call(ctx, r, ActionRunTask, key, p.Task.Timeout, func(ctx context.Context) (RunResult, error) {
		return h.RunTask(ctx, p)
	})
}

// GetTestResult implements Router. A nil result means no stored result.
func (r *Registry) GetTestResult(ctx context.Context, p TestParams) (*RunResult, error) {
	h := r.lookup(p.Module.Type)
	if h == nil || h.GetTestResult == nil {
		return nil, nil
	}
	return call(ctx, r, ActionGetTestResult, "test."+p.Test.Key(), p.Test.Timeout, func(ctx context.Context) (*RunResult, error) {
		return h.GetTestResult(ctx, p)
	})
}

// TestModule implements Router.
func (r *Registry) TestModule(ctx context.Context, p TestParams) (RunResult, error) {
	key := "test." + p.Test.Key()
	h := r.lookup(p.Module.Type)
	if h == nil || h.TestModule == nil {
		return RunResult{}, missing(ActionTestModule, p.Module.Type, key)
	}
	return call(ctx, r, ActionTestModule, key, p.Test.Timeout, func(ctx context.Context) (RunResult, error) {
		return h.TestModule(ctx, p)
	})
}
