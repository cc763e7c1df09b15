// Package errors provides centralized error definitions for the governance
// core: sentinel errors, semantic error types, and classification helpers.
//
// The error policy is deliberately asymmetric, and callers must keep it that
// way. Agent-triggered validation failures (bad category, over-limit vote,
// insufficient layer to suppress) are NOT errors: components return structured
// result values that are safe to show back to the agent. Go errors are
// reserved for caller mistakes and infrastructure failures: unknown ids
// passed to operations that assume existence (NotFoundError), arbitrators
// resolving below the required level (AuthorizationError), and storage
// problems.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions so callers can import only this
// package for error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Workspace-related sentinel errors.
var (
	// ErrWorkspaceLocked indicates the persisted workspace document is
	// locked by another process. Transient; callers may retry.
	ErrWorkspaceLocked = New("workspace document is locked")

	// ErrWorkspaceCorrupted indicates the persisted document failed to parse.
	ErrWorkspaceCorrupted = New("workspace document corrupted")
)

// Arbitration-related sentinel errors.
var (
	// ErrArbitrationNotFound indicates an unknown arbitration case id.
	ErrArbitrationNotFound = New("arbitration case not found")

	// ErrArbitrationResolved indicates a mutation on an already-resolved case.
	ErrArbitrationResolved = New("arbitration case already resolved")
)

// ErrAgentNotFound indicates an alias unknown to the agent store.
var ErrAgentNotFound = New("agent not found")

// NotFoundError indicates that a resource referenced by id does not exist.
// This is a programmer/caller mistake, not agent misbehavior.
type NotFoundError struct {
	Resource string // e.g. "arbitration", "broadcast"
	ID       string
	sentinel error
}

// NewNotFoundError creates a NotFoundError wrapping the given sentinel.
func NewNotFoundError(resource, id string, sentinel error) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id, sentinel: sentinel}
}

// Error returns the formatted message.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// Unwrap returns the wrapped sentinel, if any.
func (e *NotFoundError) Unwrap() error { return e.sentinel }

// Is matches any *NotFoundError or the wrapped sentinel.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.sentinel != nil && errors.Is(e.sentinel, target)
}

// AuthorizationError indicates an operation attempted with insufficient
// authority at commit time, e.g. an arbitrator below the case's required
// level. Unlike suppression permission checks, which soft-fail, this is a
// hard error: reaching this point means the caller skipped the published
// qualification check.
type AuthorizationError struct {
	Actor    string
	Level    int
	Required int
	Action   string
}

// NewAuthorizationError creates an AuthorizationError.
func NewAuthorizationError(actor string, level, required int, action string) *AuthorizationError {
	return &AuthorizationError{Actor: actor, Level: level, Required: required, Action: action}
}

// Error returns the formatted message.
func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s (level %d) is not authorized to %s: level %d required",
		e.Actor, e.Level, e.Action, e.Required)
}

// Is matches any *AuthorizationError.
func (e *AuthorizationError) Is(target error) bool {
	_, ok := target.(*AuthorizationError)
	return ok
}

// ValidationError indicates invalid input from a caller (not an agent).
// Agent-facing validation uses result values instead.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Error returns the formatted message.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is matches any *ValidationError.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// IsRetryable reports whether the error is transient and the operation may
// succeed on retry. Only lock contention qualifies.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrWorkspaceLocked)
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) ||
		errors.Is(err, ErrArbitrationNotFound) ||
		errors.Is(err, ErrAgentNotFound)
}
