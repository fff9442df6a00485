package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/gardengo/internal/ctxlog"
	"github.com/specialistvlad/gardengo/internal/dag"
	"github.com/specialistvlad/gardengo/internal/errdefs"
	"github.com/specialistvlad/gardengo/internal/events"
	"github.com/specialistvlad/gardengo/internal/inmemorystore"
	"github.com/specialistvlad/gardengo/internal/task"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Scheduler processes task graphs. It is safe for concurrent use.
type Scheduler struct {
	concurrency int
	bus         *events.Bus
	store       *inmemorystore.Store
	flight      singleflight.Group
}

// New creates a Scheduler.
func New(opts Options) *Scheduler {
	c := opts.Concurrency
	if c <= 0 {
		c = DefaultConcurrency
	}
	return &Scheduler{
		concurrency: c,
		bus:         opts.Bus,
		store:       inmemorystore.New(),
	}
}

// Store returns the scheduler's task state store.
func (s *Scheduler) Store() *inmemorystore.Store {
	return s.store
}

// run is the state of one ProcessTasks call.
type run struct {
	s       *Scheduler
	batchID string
	tasks   map[string]task.Task
	deps    map[string][]string
	graph   *dag.Graph

	mu       sync.Mutex
	results  Results
	failures []string

	unmet map[string]*atomic.Int32
	ready chan string
	wg    sync.WaitGroup
}

// ProcessTasks expands roots into the full task graph and processes it.
// The returned Results hold one entry per task key. Graph expansion errors
// and dependency cycles abort the call before any task runs.
func (s *Scheduler) ProcessTasks(ctx context.Context, roots []task.Task, opts ProcessOptions) (Results, error) {
	r := &run{
		s:       s,
		batchID: uuid.NewString(),
		tasks:   make(map[string]task.Task),
		deps:    make(map[string][]string),
		graph:   dag.New(),
		results: make(Results),
	}
	ctx = ctxlog.With(ctx, "batch", r.batchID)
	logger := ctxlog.FromContext(ctx)

	if err := r.expand(ctx, roots); err != nil {
		return nil, err
	}
	if err := r.buildGraph(); err != nil {
		return nil, err
	}
	logger.Debug("Task graph expanded.", "roots", len(roots), "tasks", len(r.tasks))

	for _, key := range r.graph.Nodes() {
		r.publish(events.TaskPending, r.tasks[key], nil, 0)
	}

	r.execute(ctx)
	s.bus.Publish(events.Event{Type: events.TaskGraphComplete, BatchID: r.batchID})

	if opts.ThrowOnError && len(r.failures) > 0 {
		key := r.failures[0]
		return r.results, &errdefs.GraphError{Key: key, Err: r.results[key].Err}
	}
	return r.results, nil
}

// expand resolves dependencies frontier by frontier until no new keys
// appear. The first task registered under a key wins.
func (r *run) expand(ctx context.Context, roots []task.Task) error {
	var frontier []task.Task
	for _, t := range roots {
		if _, ok := r.tasks[t.Key()]; ok {
			continue
		}
		r.tasks[t.Key()] = t
		frontier = append(frontier, t)
	}

	var mu sync.Mutex
	for len(frontier) > 0 {
		var next []task.Task
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.s.concurrency)

		for _, t := range frontier {
			g.Go(func() error {
				deps, err := t.Dependencies(gctx)
				if err != nil {
					return fmt.Errorf("resolving dependencies of %s: %w", t.Key(), err)
				}
				keys := make([]string, 0, len(deps))
				mu.Lock()
				defer mu.Unlock()
				for _, d := range deps {
					keys = append(keys, d.Key())
					if _, ok := r.tasks[d.Key()]; ok {
						continue
					}
					r.tasks[d.Key()] = d
					next = append(next, d)
				}
				r.deps[t.Key()] = keys
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		sort.Slice(next, func(i, j int) bool { return next[i].Key() < next[j].Key() })
		frontier = next
	}
	return nil
}

func (r *run) buildGraph() error {
	for key := range r.tasks {
		r.graph.AddNode(key)
	}
	for key, deps := range r.deps {
		for _, d := range deps {
			if d == key {
				return errdefs.NewCycleError([]string{key, key})
			}
			if err := r.graph.AddEdge(d, key); err != nil {
				return err
			}
		}
	}
	if err := r.graph.DetectCycles(); err != nil {
		var cycle *dag.CycleError
		if errors.As(err, &cycle) {
			return errdefs.NewCycleError(cycle.Path)
		}
		return err
	}
	return nil
}

// execute runs every task on the worker pool and returns once all tasks
// are settled.
func (r *run) execute(ctx context.Context) {
	nodes := r.graph.Nodes()
	r.unmet = make(map[string]*atomic.Int32, len(nodes))
	r.ready = make(chan string, len(nodes))
	r.wg.Add(len(nodes))

	var initial []string
	for _, key := range nodes {
		deps, _ := r.graph.Dependencies(key)
		c := &atomic.Int32{}
		c.Store(int32(len(deps)))
		r.unmet[key] = c
		if len(deps) == 0 {
			initial = append(initial, key)
		}
	}

	var workers sync.WaitGroup
	for i := 0; i < r.s.concurrency; i++ {
		workers.Add(1)
		go func(workerID int) {
			defer workers.Done()
			r.worker(ctx, workerID)
		}(i)
	}

	for _, key := range initial {
		r.ready <- key
	}

	r.wg.Wait()
	close(r.ready)
	workers.Wait()
}

// worker is the core processing loop for a single concurrent worker.
func (r *run) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for key := range r.ready {
		t := r.tasks[key]
		workerLogger := logger.With("workerID", workerID, "key", key)

		if err := ctx.Err(); err != nil {
			now := time.Now()
			r.fail(key, r.newResult(t, nil, err, now, now))
			continue
		}

		workerLogger.Debug("Worker picked up task.")
		res := r.process(ctx, t)
		if res.Err != nil {
			workerLogger.Debug("Task failed.", "error", res.Err)
			r.fail(key, res)
			continue
		}
		r.complete(key, res)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// process runs a task. Concurrent calls for the same key and force flag
// share one execution; caching across calls is left to the task's own
// status check.
func (r *run) process(ctx context.Context, t task.Task) *Result {
	key := t.Key()
	depResults := r.dependencyResults(key)

	flightKey := key
	if t.Force() {
		flightKey += "\x00force"
	}

	v, _, _ := r.s.flight.Do(flightKey, func() (any, error) {
		_ = r.s.store.SetStatus(ctx, key, inmemorystore.StatusProcessing)
		r.publish(events.TaskProcessing, t, nil, 0)

		inputs := make(task.Results, len(depResults))
		for k, d := range depResults {
			inputs[k] = task.Result{Type: task.Type(d.Type), Key: d.Key, Name: d.Name, Version: d.Version, Output: d.Output}
		}

		start := time.Now()
		out, err := safeProcess(ctx, t, inputs)
		res := r.newResult(t, out, err, start, time.Now())

		if err != nil {
			_ = r.s.store.SetStatus(ctx, key, inmemorystore.StatusFailed)
			_ = r.s.store.SetError(ctx, key, err)
		} else {
			_ = r.s.store.SetStatus(ctx, key, inmemorystore.StatusComplete)
			_ = r.s.store.SetOutput(ctx, key, res)
		}
		return res, nil
	})

	res := *v.(*Result)
	res.Dependencies = depResults
	return &res
}

// safeProcess turns panics in task bodies into errors.
func safeProcess(ctx context.Context, t task.Task, deps task.Results) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %s panicked: %v", t.Key(), p)
		}
	}()
	return t.Process(ctx, deps)
}

func (r *run) newResult(t task.Task, out any, err error, start, end time.Time) *Result {
	return &Result{
		Type:        string(t.Type()),
		Key:         t.Key(),
		Name:        t.Name(),
		Description: t.Description(),
		Version:     t.Version(),
		Output:      out,
		Err:         err,
		StartedAt:   start,
		CompletedAt: end,
	}
}

func (r *run) dependencyResults(key string) map[string]*Result {
	deps, _ := r.graph.Dependencies(key)
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*Result, len(deps))
	for _, d := range deps {
		out[d] = r.results[d]
	}
	return out
}

// complete records a success and releases dependants whose dependencies
// are now all complete.
func (r *run) complete(key string, res *Result) {
	r.mu.Lock()
	r.results[key] = res
	r.mu.Unlock()
	r.publish(events.TaskComplete, r.tasks[key], nil, res.CompletedAt.Sub(res.StartedAt))

	dependents, _ := r.graph.Dependents(key)
	for _, d := range dependents {
		if r.unmet[d].Add(-1) == 0 {
			r.ready <- d
		}
	}
	r.wg.Done()
}

// fail records a failure and settles every transitive dependant as skipped.
func (r *run) fail(key string, res *Result) {
	r.mu.Lock()
	r.results[key] = res
	r.failures = append(r.failures, key)
	r.mu.Unlock()
	r.publish(events.TaskError, r.tasks[key], res.Err, res.CompletedAt.Sub(res.StartedAt))
	r.wg.Done()

	descendants, _ := r.graph.Descendants(key)
	for _, d := range descendants {
		r.mu.Lock()
		if _, settled := r.results[d]; settled {
			r.mu.Unlock()
			continue
		}
		now := time.Now()
		skipped := r.newResult(r.tasks[d], nil, &errdefs.DependencyError{Key: d, Dependency: key, Err: res.Err}, now, now)
		r.results[d] = skipped
		r.mu.Unlock()

		_ = r.s.store.SetStatus(context.Background(), d, inmemorystore.StatusSkipped)
		r.publish(events.TaskSkipped, r.tasks[d], skipped.Err, 0)
		r.wg.Done()
	}
}

func (r *run) publish(typ events.Type, t task.Task, err error, d time.Duration) {
	e := events.Event{
		Type:        typ,
		BatchID:     r.batchID,
		Key:         t.Key(),
		Name:        t.Name(),
		TaskType:    string(t.Type()),
		Description: t.Description(),
		Version:     t.Version(),
		Duration:    d,
	}
	if err != nil {
		e.Error = err.Error()
	}
	r.s.bus.Publish(e)
}
