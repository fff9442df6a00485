package scheduler

import (
	"time"

	"github.com/specialistvlad/gardengo/internal/events"
)

// DefaultConcurrency is used when Options.Concurrency is not positive.
const DefaultConcurrency = 6

// Options configure a Scheduler.
type Options struct {
	// Concurrency bounds the number of tasks processed at once.
	Concurrency int
	// Bus receives progress events. It may be nil.
	Bus *events.Bus
}

// ProcessOptions configure a single ProcessTasks call.
type ProcessOptions struct {
	// ThrowOnError makes ProcessTasks return a *errdefs.GraphError for the
	// first task that failed on its own account.
	ThrowOnError bool
}

// Result is the outcome of one task.
type Result struct {
	Type        string
	Key         string
	Name        string
	Description string
	Version     string
	Output      any
	Err         error
	StartedAt   time.Time
	CompletedAt time.Time
	// Dependencies are the results of the task's direct dependencies.
	Dependencies map[string]*Result
}

// Results holds the result of every task of a graph, keyed by task key.
type Results map[string]*Result

// Failed returns the keys of failed and skipped tasks.
func (r Results) Failed() []string {
	var keys []string
	for k, res := range r {
		if res.Err != nil {
			keys = append(keys, k)
		}
	}
	return keys
}
