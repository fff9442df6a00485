// Package configgraph resolves the static dependency graph of a project:
// build dependencies between modules and runtime dependencies of services,
// tasks and tests. A Graph is read-only once built; reloading the project
// builds a new one.
package configgraph
