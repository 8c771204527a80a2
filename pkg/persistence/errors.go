// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrExecutionNotFound indicates an execution was not found by the given identifier.
	ErrExecutionNotFound = errors.New("execution not found")

	// ErrPromptNotFound indicates a prompt was not found by the given identifier.
	ErrPromptNotFound = errors.New("prompt not found")

	// ErrConversationNotFound indicates no conversation exists for the session.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrInvalidSortField indicates an unsupported sort field was requested.
	ErrInvalidSortField = errors.New("invalid sort field")
)

// StoreError wraps persistence errors with operation context.
type StoreError struct {
	Op      string // Operation being performed (e.g. "GetByID", "Save", "Delete")
	Kind    string // Record kind (workflow, execution, prompt, conversation)
	ID      string // Record identifier if applicable
	Err     error  // Underlying error
	Message string // Additional context message
}

func (e *StoreError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for %s %s: %s (%v)", e.Op, e.Kind, e.ID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Kind, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, kind, id string, err error) *StoreError {
	return &StoreError{Op: op, Kind: kind, ID: id, Err: err}
}

// IsWorkflowNotFound checks whether err is a workflow not-found error.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsExecutionNotFound checks whether err is an execution not-found error.
func IsExecutionNotFound(err error) bool {
	return errors.Is(err, ErrExecutionNotFound)
}

// IsPromptNotFound checks whether err is a prompt not-found error.
func IsPromptNotFound(err error) bool {
	return errors.Is(err, ErrPromptNotFound)
}

// IsConversationNotFound checks whether err is a conversation not-found error.
func IsConversationNotFound(err error) bool {
	return errors.Is(err, ErrConversationNotFound)
}

// IsInvalidSortField checks whether err is an invalid sort field error.
func IsInvalidSortField(err error) bool {
	return errors.Is(err, ErrInvalidSortField)
}
