package sharekit

import (
	"errors"
	"fmt"
)

// Sentinel errors for ShareKit operations.
var (
	// ErrNotFound is returned when an entity or grant does not exist, or the
	// principal has no visibility at all. The two causes are intentionally
	// indistinguishable to the caller.
	ErrNotFound = errors.New("sharekit: not found")

	// ErrForbidden is returned when the entity is visible to the principal
	// but the required permission level is not met.
	ErrForbidden = errors.New("sharekit: forbidden")

	// ErrExpired is returned when a grant existed but has lapsed.
	ErrExpired = errors.New("sharekit: share expired")

	// ErrInvalidPassword is returned on a failed password attempt against a
	// protected share. Recoverable: the caller may re-prompt.
	ErrInvalidPassword = errors.New("sharekit: invalid password")

	// ErrValidation is returned for malformed grant input, e.g. a grant that
	// is neither public nor targeted.
	ErrValidation = errors.New("sharekit: invalid input")

	// ErrInvalidEntityType is returned when an entity type is not registered.
	ErrInvalidEntityType = errors.New("sharekit: invalid entity type")

	// ErrInvalidLevel is returned when a permission level string is unknown.
	ErrInvalidLevel = errors.New("sharekit: invalid permission level")

	// ErrNoPrincipal is returned when an operation requires an acting
	// principal and none is found in context.
	ErrNoPrincipal = errors.New("sharekit: no principal in context")

	// ErrNoEntityRef is returned by extractors when the request carries no
	// entity reference. Enforcement proceeds unchecked in that case.
	ErrNoEntityRef = errors.New("sharekit: no entity reference in request")

	// ErrDatabaseError is returned when a store operation fails. Store
	// failures always fail closed: they surface as NotFound to end users,
	// never as implicit access.
	ErrDatabaseError = errors.New("sharekit: database error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error  // Underlying sentinel error
	Message    string // Additional context
	EntityType string // Entity type involved
	EntityID   string // Entity ID involved
	ShareID    string // Grant involved (if applicable)
	Principal  string // Principal involved (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithEntity adds entity information to the error.
func (e *Error) WithEntity(ref EntityRef) *Error {
	e.EntityType = ref.Type
	e.EntityID = ref.ID
	return e
}

// WithShare adds grant information to the error.
func (e *Error) WithShare(shareID string) *Error {
	e.ShareID = shareID
	return e
}

// WithPrincipal adds principal information to the error.
func (e *Error) WithPrincipal(principal string) *Error {
	e.Principal = principal
	return e
}

// IsNotFound checks if an error hides the target from the caller.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden checks if an error denies a visible target.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsExpired checks if an error is due to a lapsed grant.
func IsExpired(err error) bool {
	return errors.Is(err, ErrExpired)
}

// IsInvalidPassword checks if an error is a recoverable password failure.
func IsInvalidPassword(err error) bool {
	return errors.Is(err, ErrInvalidPassword)
}

// IsValidation checks if an error is due to malformed input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidEntityType) ||
		errors.Is(err, ErrInvalidLevel)
}
