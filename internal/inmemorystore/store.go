package inmemorystore

import (
	"context"
	"sync"
)

// Status is the execution status of a task.
type Status int

const (
	StatusPending Status = iota
	StatusProcessing
	StatusComplete
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusComplete:
		return "complete"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// Store is an in-memory task state store using sync.Map for fine-grained
// concurrent access without global lock contention.
type Store struct {
	states  sync.Map // Key: task key, Value: Status
	outputs sync.Map // Key: task key, Value: any
	errors  sync.Map // Key: task key, Value: error
}

// New creates a new, empty in-memory task state store.
func New() *Store {
	return &Store{}
}

// SetStatus updates the execution status of a task.
func (s *Store) SetStatus(ctx context.Context, key string, status Status) error {
	s.states.Store(key, status)
	return nil
}

// GetStatus retrieves the execution status of a task.
// If a status has not been set, it returns StatusPending.
func (s *Store) GetStatus(ctx context.Context, key string) (Status, error) {
	status, ok := s.states.Load(key)
	if !ok {
		return StatusPending, nil
	}
	return status.(Status), nil
}

// SetOutput records the successful output of a task and clears any
// previously recorded error.
func (s *Store) SetOutput(ctx context.Context, key string, output any) error {
	s.outputs.Store(key, output)
	s.errors.Delete(key)
	return nil
}

// GetOutput retrieves the recorded output of a completed task.
func (s *Store) GetOutput(ctx context.Context, key string) (any, error) {
	output, ok := s.outputs.Load(key)
	if !ok {
		return nil, nil // If not found, the output is nil.
	}
	return output, nil
}

// SetError records the failure of a task and drops its last successful
// output.
func (s *Store) SetError(ctx context.Context, key string, taskErr error) error {
	s.errors.Store(key, taskErr)
	s.outputs.Delete(key)
	return nil
}

// GetError retrieves the recorded error of a failed task.
func (s *Store) GetError(ctx context.Context, key string) (error, error) {
	err, ok := s.errors.Load(key)
	if !ok {
		return nil, nil // If not found, there is no error.
	}
	return err.(error), nil
}

// Reset forgets every recorded key.
func (s *Store) Reset() {
	s.states.Clear()
	s.outputs.Clear()
	s.errors.Clear()
}
