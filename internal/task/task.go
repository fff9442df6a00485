package task

import (
	"context"
	"log/slog"
	"strings"

	"github.com/specialistvlad/gardengo/internal/buildstage"
	"github.com/specialistvlad/gardengo/internal/configgraph"
	"github.com/specialistvlad/gardengo/internal/ctxlog"
	"github.com/specialistvlad/gardengo/internal/registry"
)

// Type is the kind of a task.
type Type string

const (
	TypeBuild  Type = "build"
	TypeDeploy Type = "deploy"
	TypeTask   Type = "task"
	TypeTest   Type = "test"
)

// Task is a unit of work with a stable identity.
type Task interface {
	Type() Type
	// Key identifies the task; two tasks with the same key are the same
	// unit of work and run at most once per scheduler.
	Key() string
	Name() string
	Description() string
	Force() bool
	// Version is the version of the module the task operates on.
	Version() string
	// Dependencies returns the tasks that must complete first.
	Dependencies(ctx context.Context) ([]Task, error)
	// Process runs the task given the results of its direct dependencies.
	Process(ctx context.Context, deps Results) (any, error)
}

// Result is the outcome of a completed dependency as seen by its dependant.
type Result struct {
	Type    Type
	Key     string
	Name    string
	Version string
	Output  any
}

// Results holds dependency results keyed by task key.
type Results map[string]Result

// Find returns the result of the task with the given type and name,
// regardless of any key discriminator.
func (r Results) Find(typ Type, name string) (Result, bool) {
	for _, res := range r {
		if res.Type == typ && res.Name == name {
			return res, true
		}
	}
	return Result{}, false
}

// MakeKey returns "<type>.<name>" with an optional "+<discriminator>".
func MakeKey(typ Type, name, discriminator string) string {
	key := string(typ) + "." + name
	if discriminator != "" {
		key += "+" + discriminator
	}
	return key
}

// ParseKey splits a task key into its type, name and discriminator.
func ParseKey(key string) (Type, string, string) {
	typ, rest, _ := strings.Cut(key, ".")
	name, disc, _ := strings.Cut(rest, "+")
	return Type(typ), name, disc
}

// Env holds the collaborators shared by all tasks of a run.
type Env struct {
	Graph  *configgraph.Graph
	Router registry.Router
	Stager buildstage.Stager
	// Variables overrides the project variables when set.
	Variables map[string]any
	Logger    *slog.Logger
}

func (e *Env) variables() map[string]any {
	if e.Variables != nil {
		return e.Variables
	}
	return e.Graph.Variables()
}

// logger returns the context logger, or the Env logger when one is set.
func (e *Env) logger(ctx context.Context) *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return ctxlog.FromContext(ctx)
}

func dedupe(tasks []Task) []Task {
	seen := make(map[string]bool, len(tasks))
	out := tasks[:0]
	for _, t := range tasks {
		if seen[t.Key()] {
			continue
		}
		seen[t.Key()] = true
		out = append(out, t)
	}
	return out
}
