// Package persistence provides standardized error types for store operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrContactNotFound indicates a contact was not found by the given identifier.
	ErrContactNotFound = errors.New("contact not found")

	// ErrWorkspaceNotFound indicates a workspace was not found by the given identifier.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrSequenceNotFound indicates a sequence was not found by the given identifier.
	ErrSequenceNotFound = errors.New("sequence not found")

	// ErrEnrollmentNotFound indicates an enrollment was not found.
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	// ErrColumnNotFound indicates a task column was not found.
	ErrColumnNotFound = errors.New("task column not found")

	// ErrCategoryNotFound indicates a category was not found.
	ErrCategoryNotFound = errors.New("category not found")

	// ErrEnrollmentExists indicates an active enrollment already exists for
	// the (sequence, contact) pair. Raised by the store's uniqueness guard.
	ErrEnrollmentExists = errors.New("enrollment already exists")
)

// StoreError wraps store-level errors with operation context.
type StoreError struct {
	Op     string // Operation being performed (e.g. "ContactByID", "CreateEnrollment")
	Entity string // Entity kind ("contact", "sequence", ...)
	ID     string // Record identifier if applicable
	Err    error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
	}

	return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, entity, id string, err error) *StoreError {
	return &StoreError{Op: op, Entity: entity, ID: id, Err: err}
}

// IsNotFound checks if an error indicates any record was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContactNotFound) ||
		errors.Is(err, ErrWorkspaceNotFound) ||
		errors.Is(err, ErrSequenceNotFound) ||
		errors.Is(err, ErrEnrollmentNotFound) ||
		errors.Is(err, ErrColumnNotFound) ||
		errors.Is(err, ErrCategoryNotFound)
}

// IsEnrollmentExists checks if an error is the store's enrollment
// uniqueness conflict.
func IsEnrollmentExists(err error) bool {
	return errors.Is(err, ErrEnrollmentExists)
}
