package sharekit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func protectedGrant(t *testing.T, password string) *ShareGrant {
	t.Helper()
	grant := livePublicGrant(LevelView)
	grant.ID = "grant-protected"
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		assert.NoError(t, err)
		grant.PasswordHash = string(hash)
	}
	return &grant
}

// TestAccessStateString tests the state names
func TestAccessStateString(t *testing.T) {
	assert.Equal(t, "start", AccessStateStart.String())
	assert.Equal(t, "expired", AccessStateExpired.String())
	assert.Equal(t, "password_required", AccessStatePasswordRequired.String())
	assert.Equal(t, "denied", AccessStateDenied.String())
	assert.Equal(t, "granted", AccessStateGranted.String())
	assert.Equal(t, "unknown", AccessState(99).String())
}

// TestAccessGateEvaluateGranted tests the plain unprotected path
func TestAccessGateEvaluateGranted(t *testing.T) {
	gate := NewAccessGate(&Service{})
	grant := protectedGrant(t, "")

	result, err := gate.Evaluate(context.Background(), grant, "")
	assert.NoError(t, err)
	assert.Equal(t, AccessStateGranted, result.State)
	assert.False(t, result.PasswordRequired)
	assert.Equal(t, LevelView, result.Level)
}

// TestAccessGateEvaluateExpired tests that expiry is checked before the
// password gate
func TestAccessGateEvaluateExpired(t *testing.T) {
	gate := NewAccessGate(&Service{})
	grant := protectedGrant(t, "hunter2")
	grant.ExpiresAt = time.Now().Add(-time.Minute)

	result, err := gate.Evaluate(context.Background(), grant, "")
	assert.NoError(t, err)
	assert.Equal(t, AccessStateExpired, result.State)
	// The expired result reveals nothing about the password gate
	assert.False(t, result.PasswordRequired)
}

// TestAccessGateEvaluateDenied tests targeted grants against the wrong
// principal
func TestAccessGateEvaluateDenied(t *testing.T) {
	gate := NewAccessGate(&Service{})
	grant := liveGrant("alice", LevelView)

	ctx := WithPrincipal(context.Background(), "mallory")
	result, err := gate.Evaluate(ctx, &grant, "")
	assert.NoError(t, err)
	assert.Equal(t, AccessStateDenied, result.State)

	// Anonymous callers cannot consume targeted grants either
	result, err = gate.Evaluate(context.Background(), &grant, "")
	assert.NoError(t, err)
	assert.Equal(t, AccessStateDenied, result.State)
}

// TestAccessGateEvaluatePasswordPrompt tests the prompt when no attempt was
// supplied
func TestAccessGateEvaluatePasswordPrompt(t *testing.T) {
	gate := NewAccessGate(&Service{})
	grant := protectedGrant(t, "hunter2")

	ctx := WithSessionID(context.Background(), "sess-1")
	result, err := gate.Evaluate(ctx, grant, "")
	assert.NoError(t, err)
	assert.Equal(t, AccessStatePasswordRequired, result.State)
	assert.True(t, result.PasswordRequired)
}

// TestAccessGateEvaluateWrongPassword tests the recoverable failure
func TestAccessGateEvaluateWrongPassword(t *testing.T) {
	gate := NewAccessGate(&Service{})
	grant := protectedGrant(t, "hunter2")

	ctx := WithSessionID(context.Background(), "sess-1")
	result, err := gate.Evaluate(ctx, grant, "wrong")
	assert.Error(t, err)
	assert.True(t, IsInvalidPassword(err))
	assert.Equal(t, AccessStatePasswordRequired, result.State)
}

// TestAccessGateEvaluateCorrectPassword tests that a correct attempt grants
// and verifies the session
func TestAccessGateEvaluateCorrectPassword(t *testing.T) {
	gate := NewAccessGate(&Service{})
	grant := protectedGrant(t, "hunter2")

	ctx := WithSessionID(context.Background(), "sess-1")
	result, err := gate.Evaluate(ctx, grant, "hunter2")
	assert.NoError(t, err)
	assert.Equal(t, AccessStateGranted, result.State)
	assert.True(t, result.PasswordRequired)

	// The session is now verified: no prompt on the next visit
	result, err = gate.Evaluate(ctx, grant, "")
	assert.NoError(t, err)
	assert.Equal(t, AccessStateGranted, result.State)
}

// TestAccessGateEvaluateCreatorSkipsPassword tests the creator bypass
func TestAccessGateEvaluateCreatorSkipsPassword(t *testing.T) {
	gate := NewAccessGate(&Service{})
	grant := protectedGrant(t, "hunter2")

	ctx := WithPrincipal(context.Background(), grant.CreatedBy)
	result, err := gate.Evaluate(ctx, grant, "")
	assert.NoError(t, err)
	assert.Equal(t, AccessStateGranted, result.State)
	assert.False(t, result.PasswordRequired)
}

// TestAccessGateEvaluateThrottled tests that hammering the password gate
// gets throttled
func TestAccessGateEvaluateThrottled(t *testing.T) {
	gate := NewAccessGate(&Service{})
	grant := protectedGrant(t, "hunter2")

	ctx := WithSessionID(context.Background(), "sess-1")
	ctx = WithSourceAddress(ctx, "203.0.113.9")

	var lastErr error
	for i := 0; i < 6; i++ {
		_, lastErr = gate.Evaluate(ctx, grant, "wrong")
	}
	assert.Error(t, lastErr)
	assert.True(t, IsInvalidPassword(lastErr))
	assert.Contains(t, lastErr.Error(), "too many")

	// Even the correct password is throttled once the bucket is empty
	_, err := gate.Evaluate(ctx, grant, "hunter2")
	assert.Error(t, err)
	assert.True(t, IsInvalidPassword(err))
}

// TestAccessGateEvaluateVerifiedSessionSkipsLimiter tests that an already
// verified session never reaches the limiter
func TestAccessGateEvaluateVerifiedSessionSkipsLimiter(t *testing.T) {
	sessions := NewMemorySessionVerifier()
	gate := NewAccessGate(&Service{}, WithSessionVerifier(sessions))
	grant := protectedGrant(t, "hunter2")

	ctx := WithSessionID(context.Background(), "sess-1")
	assert.NoError(t, sessions.MarkVerified(ctx, "sess-1", grant.ID))

	for i := 0; i < 20; i++ {
		result, err := gate.Evaluate(ctx, grant, "")
		assert.NoError(t, err)
		assert.Equal(t, AccessStateGranted, result.State)
	}
}
