package service

import (
	"errors"
	"fmt"

	"github.com/straye-as/season-planning-api/internal/domain"
)

// Common service errors. The typed errors below match these with errors.Is.
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when there's a conflict (e.g., duplicate)
	ErrConflict = errors.New("resource conflict")

	// ErrInvalidTransition is returned when a workflow transition skips, repeats or reverses a step
	ErrInvalidTransition = errors.New("invalid workflow transition")

	// ErrWorkflowViolation is returned when the season's status forbids a write
	ErrWorkflowViolation = errors.New("workflow violation")

	// ErrInvalidState is returned when an entity is not in the state an operation requires
	ErrInvalidState = errors.New("invalid state")
)

// InvalidTransitionError is returned when the requested status is not the
// direct successor of the current one
type InvalidTransitionError struct {
	Current   domain.SeasonStatus
	Requested domain.SeasonStatus
}

func (e *InvalidTransitionError) Error() string {
	if next, ok := e.Current.Next(); ok {
		return fmt.Sprintf("cannot transition from %s to %s; next allowed status is %s", e.Current, e.Requested, next)
	}
	return fmt.Sprintf("cannot transition from %s to %s; %s is final", e.Current, e.Requested, e.Current)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// WorkflowViolationError is returned when the mutation guard denies a write
type WorkflowViolationError struct {
	Kind      domain.EntityKind
	Operation domain.Operation
	State     domain.SeasonStatus
}

func (e *WorkflowViolationError) Error() string {
	return fmt.Sprintf("cannot %s %s while season is %s", e.Operation, e.Kind, e.State)
}

func (e *WorkflowViolationError) Is(target error) bool {
	return target == ErrWorkflowViolation
}

// ValidationError is returned when an input fails a domain rule
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NotFoundError is returned when a referenced entity does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InvalidStateError is returned when an entity has already left the state an
// operation requires, e.g. approving an adjustment that is no longer pending
type InvalidStateError struct {
	Resource string
	ID       string
	State    string
	Message  string
}

func (e *InvalidStateError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s is %s: %s", e.Resource, e.ID, e.State, e.Message)
	}
	return fmt.Sprintf("%s %s is %s", e.Resource, e.ID, e.State)
}

func (e *InvalidStateError) Is(target error) bool {
	return target == ErrInvalidState
}

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func newNotFoundError(resource string, id fmt.Stringer) error {
	return &NotFoundError{Resource: resource, ID: id.String()}
}

func newInvalidStateError(resource string, id fmt.Stringer, state, message string) error {
	return &InvalidStateError{Resource: resource, ID: id.String(), State: state, Message: message}
}
