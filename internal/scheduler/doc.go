// Package scheduler executes task graphs.
//
// ProcessTasks expands the given root tasks into the full graph by calling
// Dependencies until no new task keys appear, then runs the graph on a
// bounded pool of workers. A task starts only after all of its dependencies
// completed successfully. Each task key is processed at most once per
// scheduler at a time, even across concurrent ProcessTasks calls. Forced
// and unforced runs of a key are never shared. Later calls always process
// the task again; tasks decide for themselves whether the backend already
// holds a current result.
//
// A failing task does not stop unrelated branches. Its transitive
// dependants are recorded as skipped with an *errdefs.DependencyError and
// never processed.
package scheduler
