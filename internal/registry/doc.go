// Package registry routes backend actions to the handlers registered for
// each module type.
//
// Plugins implement Module and register a Handlers value per module type
// during application startup. The Registry then serves as the Router the
// tasks use: it applies per-action timeouts and wraps handler failures in
// *errdefs.BackendExecutionError.
package registry
