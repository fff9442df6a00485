package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/gardengo/internal/ctxlog"
	"github.com/specialistvlad/gardengo/internal/events"
	"github.com/specialistvlad/gardengo/internal/metrics"
	"github.com/specialistvlad/gardengo/internal/project"
	"github.com/specialistvlad/gardengo/internal/registry"
	"github.com/specialistvlad/gardengo/internal/scheduler"
	"github.com/specialistvlad/gardengo/modules/socketio"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	registry  *registry.Registry
	project   *project.Project
	bus       *events.Bus
	metrics   *metrics.Collector
	scheduler *scheduler.Scheduler

	httpServer *http.Server
}

// NewApp is the constructor for the main application. It wires the logger,
// the backend registry and the project. When no modules are given the
// core modules are registered.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	proj, err := project.New(cfg.ProjectPath, reg)
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		modules = coreModules(proj.Root())
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "types", reg.Types())

	collector := metrics.New()
	bus := events.NewBus(events.LogObserver{Logger: logger}, collector)

	return &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		registry:  reg,
		project:   proj,
		bus:       bus,
		metrics:   collector,
		scheduler: scheduler.New(scheduler.Options{Concurrency: cfg.Concurrency, Bus: bus}),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Project returns the application's project.
func (a *App) Project() *project.Project {
	return a.project
}

// connectEvents subscribes a socket.io forwarder when an events URL is
// configured. The returned func disconnects it.
func (a *App) connectEvents(ctx context.Context) (func(), error) {
	if a.config.EventsURL == "" {
		return func() {}, nil
	}
	fwd, err := socketio.Connect(ctxlog.WithLogger(ctx, a.logger), socketio.Options{URL: a.config.EventsURL})
	if err != nil {
		return nil, fmt.Errorf("events forwarder: %w", err)
	}
	a.bus.Subscribe(fwd)
	return fwd.Close, nil
}
