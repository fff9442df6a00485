// Package errdefs defines the error kinds surfaced by configuration
// resolution and task execution. All types support errors.As and unwrap to
// their underlying cause where they have one.
package errdefs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports an invalid project configuration: unknown
// dependencies, duplicate names, unknown module types or dependency cycles.
// It is fatal for the resolution pass that produced it.
type ConfigurationError struct {
	Message string
	// Path is the offending configuration path, e.g. "modules.web.build.dependencies[0]".
	Path string
	// Members lists the nodes that form a dependency cycle, in traversal
	// order, with the first node repeated at the end.
	Members []string
}

func (e *ConfigurationError) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration error")
	if e.Path != "" {
		sb.WriteString(" at ")
		sb.WriteString(e.Path)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if len(e.Members) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(e.Members, " -> "))
		sb.WriteString(")")
	}
	return sb.String()
}

// NewCycleError builds a ConfigurationError for a dependency cycle.
func NewCycleError(members []string) *ConfigurationError {
	return &ConfigurationError{
		Message: "dependency cycle detected",
		Members: members,
	}
}

// NotFoundError reports that a named entity does not exist.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// BackendExecutionError wraps a failure returned by a backend action.
type BackendExecutionError struct {
	Action string
	Key    string
	// Timeout is set when the action exceeded its deadline.
	Timeout bool
	Err     error
}

func (e *BackendExecutionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s timed out: %v", e.Action, e.Key, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Action, e.Key, e.Err)
}

func (e *BackendExecutionError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps err for the given action and target. Deadline
// expiry is recorded as a timeout.
func NewBackendError(action, key string, err error) *BackendExecutionError {
	return &BackendExecutionError{
		Action:  action,
		Key:     key,
		Timeout: errors.Is(err, context.DeadlineExceeded),
		Err:     err,
	}
}

// DependencyError marks a task that was not executed because one of its
// direct or transitive dependencies failed.
type DependencyError struct {
	Key        string
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s skipped: dependency %s failed", e.Key, e.Dependency)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

// GraphError is returned to callers that asked for failures to be raised.
// It carries the key of the failing task and its cause.
type GraphError struct {
	Key string
	Err error
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.Key, e.Err)
}

func (e *GraphError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is, or wraps, a backend timeout.
func IsTimeout(err error) bool {
	var be *BackendExecutionError
	return errors.As(err, &be) && be.Timeout
}

// IsPropagated reports whether err only records an upstream failure.
func IsPropagated(err error) bool {
	var de *DependencyError
	return errors.As(err, &de)
}
