// Package task defines the units of work the scheduler executes.
//
// Every task variant derives its dependencies on demand from the resolved
// configuration graph and never holds references to other task values, so
// the scheduler can deduplicate tasks purely by key. Collaborators shared
// by all tasks of a run live in Env.
package task
