// Package dag provides a small, concurrency-safe directed graph keyed by
// string IDs. It is shared by the configuration graph, which validates the
// static relationships between modules, services, tasks and tests, and by
// the task scheduler, which executes the dynamically expanded task graph.
//
// Edges point from a dependency to its dependant: AddEdge(a, b) means b
// cannot start before a has completed.
package dag
