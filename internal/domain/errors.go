package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// The engine reports every rejected mutation through one of four error
// kinds. Callers branch on the kind with errors.As (or the Is* helpers);
// the rejected call is guaranteed to have left all balances and derived
// fields untouched.

// ValidationError marks a malformed business field: non-positive amount,
// mismatched currencies, same source and destination account.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError marks a business-rule conflict: deleting a debt with
// dependent payments, cancelling an already-cancelled transfer,
// insufficient source balance, or a concurrent-modification version
// conflict. The caller may retry after resolving.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// NewConflictError builds a ConflictError with a formatted reason.
func NewConflictError(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFoundError builds a NotFoundError for the given entity kind and id.
func NewNotFoundError(entity string, id uuid.UUID) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// AuthorizationError marks an entity owned by a different user. The
// boundary filters these before the engine runs, but every service
// re-checks ownership on every entity it touches.
type AuthorizationError struct {
	Entity string
	ID     uuid.UUID
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s %s belongs to a different owner", e.Entity, e.ID)
}

// NewAuthorizationError builds an AuthorizationError for the given entity.
func NewAuthorizationError(entity string, id uuid.UUID) error {
	return &AuthorizationError{Entity: entity, ID: id}
}

// ErrInvalidAmount is wrapped into validation failures for non-positive
// amounts so callers can match the specific cause.
var ErrInvalidAmount = &ValidationError{Reason: "invalid amount"}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsAuthorization reports whether err is (or wraps) an AuthorizationError.
func IsAuthorization(err error) bool {
	var e *AuthorizationError
	return errors.As(err, &e)
}
