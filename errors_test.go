package sharekit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrorWrapping tests the context-carrying error wrapper
func TestErrorWrapping(t *testing.T) {
	err := NewError(ErrForbidden, "insufficient permission level").
		WithEntity(NewEntityRef("document", "doc1")).
		WithPrincipal("alice")

	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, "document", err.EntityType)
	assert.Equal(t, "doc1", err.EntityID)
	assert.Equal(t, "alice", err.Principal)
	assert.Contains(t, err.Error(), "insufficient permission level")
	assert.Contains(t, err.Error(), "forbidden")
}

// TestErrorWithShare tests grant context on errors
func TestErrorWithShare(t *testing.T) {
	err := NewError(ErrNotFound, "share grant not found").WithShare("grant-123")
	assert.Equal(t, "grant-123", err.ShareID)
	assert.True(t, IsNotFound(err))
}

// TestErrorWithoutMessage tests the bare sentinel rendering
func TestErrorWithoutMessage(t *testing.T) {
	err := NewError(ErrExpired, "")
	assert.Equal(t, ErrExpired.Error(), err.Error())
}

// TestErrorUnwrap tests errors.Is through wrapping layers
func TestErrorUnwrap(t *testing.T) {
	inner := NewError(ErrInvalidPassword, "incorrect share password")
	outer := fmt.Errorf("access route: %w", inner)

	assert.True(t, errors.Is(outer, ErrInvalidPassword))
	assert.True(t, IsInvalidPassword(outer))

	var skErr *Error
	assert.True(t, errors.As(outer, &skErr))
	assert.Equal(t, "incorrect share password", skErr.Message)
}

// TestErrorPredicates tests the error classification helpers
func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NewError(ErrNotFound, "x")))
	assert.True(t, IsForbidden(NewError(ErrForbidden, "x")))
	assert.True(t, IsExpired(NewError(ErrExpired, "x")))
	assert.True(t, IsInvalidPassword(NewError(ErrInvalidPassword, "x")))

	// All three input error kinds classify as validation
	assert.True(t, IsValidation(NewError(ErrValidation, "x")))
	assert.True(t, IsValidation(NewError(ErrInvalidEntityType, "x")))
	assert.True(t, IsValidation(NewError(ErrInvalidLevel, "x")))

	// Predicates do not cross-match
	assert.False(t, IsNotFound(NewError(ErrForbidden, "x")))
	assert.False(t, IsForbidden(NewError(ErrNotFound, "x")))
	assert.False(t, IsValidation(NewError(ErrNotFound, "x")))
	assert.False(t, IsNotFound(nil))
}

// TestIsTransientStoreError tests the retry classification
func TestIsTransientStoreError(t *testing.T) {
	assert.False(t, isTransientStoreError(nil))

	// Final outcomes never retry
	assert.False(t, isTransientStoreError(NewError(ErrValidation, "bad input")))
	assert.False(t, isTransientStoreError(NewError(ErrForbidden, "denied")))
	assert.False(t, isTransientStoreError(NewError(ErrNotFound, "gone")))
	assert.False(t, isTransientStoreError(NewError(ErrNoPrincipal, "no actor")))

	// Infrastructure failures retry
	assert.True(t, isTransientStoreError(errors.New("dial tcp: connection refused")))
	assert.True(t, isTransientStoreError(errors.New("deadlock detected")))
	assert.True(t, isTransientStoreError(errors.New("i/o timeout")))

	assert.False(t, isTransientStoreError(errors.New("syntax error at or near")))
}
