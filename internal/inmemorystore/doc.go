// Package inmemorystore provides an ephemeral, thread-safe, in-memory store
// of task execution state keyed by task key.
//
// The scheduler records the status, output and error of every task it
// settles here. Entries outlive a single ProcessTasks call and always hold
// the latest outcome of a key.
//
// Each key's state is independent of every other key's, so the store uses
// sync.Map rather than a single lock around all state.
package inmemorystore
