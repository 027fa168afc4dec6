package sharekit

import (
	"context"
	"sync"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// MaxVerifiedShares caps how many share verifications a single session can
// hold. The oldest verification is evicted when the cap is reached.
const MaxVerifiedShares = 64

// DefaultVerificationTTL is how long a password verification stays valid.
// After it lapses the caller is prompted again.
const DefaultVerificationTTL = 24 * time.Hour

// SessionVerifier remembers which shares a session has already unlocked with
// a password, so the prompt appears once per session rather than once per
// request.
type SessionVerifier interface {
	// IsVerified reports whether the session holds a live verification for
	// the share.
	IsVerified(ctx context.Context, sessionID, shareID string) bool

	// MarkVerified records that the session passed the share's password
	// check.
	MarkVerified(ctx context.Context, sessionID, shareID string) error

	// Forget drops any verification the session holds for the share. Used
	// when a share's password changes.
	Forget(ctx context.Context, sessionID, shareID string) error
}

// ============================================================================
// IN-MEMORY VERIFIER
// ============================================================================

type verification struct {
	shareID    string
	verifiedAt time.Time
	expiresAt  time.Time
}

// MemorySessionVerifier keeps verifications in process memory. Suitable for
// single-instance deployments and tests; a multi-instance deployment should
// use StoreSessionVerifier so verifications survive restarts and are shared.
type MemorySessionVerifier struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string][]verification
}

// NewMemorySessionVerifier creates an in-memory verifier with the default TTL.
func NewMemorySessionVerifier() *MemorySessionVerifier {
	return &MemorySessionVerifier{
		ttl:      DefaultVerificationTTL,
		sessions: make(map[string][]verification),
	}
}

// IsVerified reports whether the session holds a live verification for the share.
func (v *MemorySessionVerifier) IsVerified(_ context.Context, sessionID, shareID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := time.Now()
	for _, entry := range v.sessions[sessionID] {
		if entry.shareID == shareID && entry.expiresAt.After(now) {
			return true
		}
	}
	return false
}

// MarkVerified records that the session passed the share's password check.
func (v *MemorySessionVerifier) MarkVerified(_ context.Context, sessionID, shareID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := time.Now()
	entries := v.sessions[sessionID]

	// Drop expired and duplicate entries first
	kept := entries[:0]
	for _, entry := range entries {
		if entry.shareID == shareID || !entry.expiresAt.After(now) {
			continue
		}
		kept = append(kept, entry)
	}

	// Evict the oldest verification when at capacity
	if len(kept) >= MaxVerifiedShares {
		kept = kept[1:]
	}

	v.sessions[sessionID] = append(kept, verification{
		shareID:    shareID,
		verifiedAt: now,
		expiresAt:  now.Add(v.ttl),
	})
	return nil
}

// Forget drops any verification the session holds for the share.
func (v *MemorySessionVerifier) Forget(_ context.Context, sessionID, shareID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	entries := v.sessions[sessionID]
	kept := entries[:0]
	for _, entry := range entries {
		if entry.shareID != shareID {
			kept = append(kept, entry)
		}
	}
	if len(kept) == 0 {
		delete(v.sessions, sessionID)
		return nil
	}
	v.sessions[sessionID] = kept
	return nil
}

// ============================================================================
// STORE-BACKED VERIFIER
// ============================================================================

// SessionVerification represents a persisted password verification.
type SessionVerification struct {
	bun.BaseModel `bun:"table:share_session_verifications,alias:ssv"`

	SessionID  string    `bun:"session_id,pk" json:"session_id"`
	ShareID    string    `bun:"share_id,pk" json:"share_id"`
	VerifiedAt time.Time `bun:"verified_at,nullzero,notnull,default:current_timestamp" json:"verified_at"`
	ExpiresAt  time.Time `bun:"expires_at,notnull" json:"expires_at"`
}

// StoreSessionVerifier persists verifications in the database so they are
// shared across service instances. Requires the sharekit migrations.
type StoreSessionVerifier struct {
	db  dbkit.IDB
	ttl time.Duration
}

// NewStoreSessionVerifier creates a store-backed verifier with the default TTL.
func NewStoreSessionVerifier(db dbkit.IDB) *StoreSessionVerifier {
	return &StoreSessionVerifier{db: db, ttl: DefaultVerificationTTL}
}

// IsVerified reports whether the session holds a live verification for the share.
func (v *StoreSessionVerifier) IsVerified(ctx context.Context, sessionID, shareID string) bool {
	exists, err := dbkit.Exists[SessionVerification](ctx, v.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("session_id = ? AND share_id = ? AND expires_at > ?", sessionID, shareID, time.Now())
	})
	if err != nil {
		// Fail closed: an unreadable verification reads as unverified
		return false
	}
	return exists
}

// MarkVerified records that the session passed the share's password check.
func (v *StoreSessionVerifier) MarkVerified(ctx context.Context, sessionID, shareID string) error {
	now := time.Now()
	record := &SessionVerification{
		SessionID:  sessionID,
		ShareID:    shareID,
		VerifiedAt: now,
		ExpiresAt:  now.Add(v.ttl),
	}

	result, err := v.db.NewInsert().
		Model(record).
		On("CONFLICT (session_id, share_id) DO UPDATE").
		Set("verified_at = EXCLUDED.verified_at").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	err = dbkit.WithErr(result, err, "MarkSessionVerified").Err()
	if err != nil {
		return NewError(ErrDatabaseError, "failed to persist session verification").WithShare(shareID)
	}
	return nil
}

// Forget drops any verification the session holds for the share.
func (v *StoreSessionVerifier) Forget(ctx context.Context, sessionID, shareID string) error {
	result, err := v.db.NewDelete().
		Table("share_session_verifications").
		Where("session_id = ? AND share_id = ?", sessionID, shareID).
		Exec(ctx)
	err = dbkit.WithErr(result, err, "ForgetSessionVerification").Err()
	if err != nil {
		return NewError(ErrDatabaseError, "failed to drop session verification").WithShare(shareID)
	}
	return nil
}
