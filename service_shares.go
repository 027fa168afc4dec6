package sharekit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ============================================================================
// GRANT LIFECYCLE OPERATIONS
// ============================================================================

// CreateShareInput describes a grant to create. Exactly one of Grantee or
// Public must be set. Password is plaintext and is bcrypt-hashed before
// storage. When both ExpiresAt and Duration are zero the grant receives the
// 30-day default retention window.
type CreateShareInput struct {
	EntityType string
	EntityID   string

	Grantee string
	Public  bool

	Level    Level
	Password string

	Duration  time.Duration
	ExpiresAt time.Time

	Name        string
	Description string
}

// CreateShare creates a grant on an entity, or updates the existing one for
// the same (entityType, entityID, grantee) target. The actor must be the
// entity's owner or hold ADMIN on it.
//
// Example:
//
//	grant, err := service.CreateShare(ctx, sharekit.CreateShareInput{
//	    EntityType: "document",
//	    EntityID:   docID,
//	    Grantee:    "user_42",
//	    Level:      sharekit.LevelEdit,
//	    Duration:   7 * 24 * time.Hour,
//	})
func (s *Service) CreateShare(ctx context.Context, in CreateShareInput) (*ShareGrant, error) {
	actorID := GetActorID(ctx)
	if actorID == "" {
		return nil, NewError(ErrNoPrincipal, "actor required to create a share")
	}

	if err := s.registry.ValidateType(in.EntityType); err != nil {
		return nil, err
	}
	if in.EntityID == "" {
		return nil, NewError(ErrValidation, "entity ID is required")
	}
	if !in.Level.Valid() {
		return nil, NewError(ErrInvalidLevel, "unknown permission level "+in.Level.String())
	}
	if in.Public == (in.Grantee != "") {
		return nil, NewError(ErrValidation, "a share must be either public or target a grantee")
	}
	if !in.ExpiresAt.IsZero() && in.ExpiresAt.Before(time.Now()) {
		return nil, NewError(ErrValidation, "expiration date cannot be in the past")
	}

	ref := NewEntityRef(in.EntityType, in.EntityID)
	res, err := s.Resolve(ctx, ref, actorID)
	if err != nil {
		return nil, err
	}
	if !res.IsOwner() && res.Level() != LevelAdmin {
		return nil, NewError(ErrForbidden, "only the owner or an ADMIN grantee can share this entity").
			WithEntity(ref).
			WithPrincipal(actorID)
	}

	passwordHash := ""
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, NewError(ErrValidation, "cannot hash share password")
		}
		passwordHash = string(hash)
	}

	expiresAt := in.ExpiresAt
	if expiresAt.IsZero() {
		duration := in.Duration
		if duration <= 0 {
			duration = DefaultShareDuration
		}
		expiresAt = time.Now().Add(duration)
	}

	grantee := in.Grantee
	if in.Public {
		grantee = publicGrantee
	}

	now := time.Now()
	grant := &ShareGrant{
		ID:           uuid.NewString(),
		EntityType:   in.EntityType,
		EntityID:     in.EntityID,
		CreatedBy:    actorID,
		Grantee:      grantee,
		IsPublic:     in.Public,
		Level:        in.Level,
		PasswordHash: passwordHash,
		ExpiresAt:    expiresAt,
		Name:         in.Name,
		Description:  in.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique index on (entity_type, entity_id, grantee) makes a second
	// creation attempt for the same target an update, never a duplicate,
	// also under concurrent attempts. The existing row keeps its id and
	// creator.
	result, err := s.store(ctx).NewInsert().
		Model(grant).
		On("CONFLICT (entity_type, entity_id, grantee) DO UPDATE").
		Set("level = EXCLUDED.level").
		Set("is_public = EXCLUDED.is_public").
		Set("password_hash = EXCLUDED.password_hash").
		Set("expires_at = EXCLUDED.expires_at").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	err = dbkit.WithErr(result, err, "CreateShareGrant").Err()
	if err != nil {
		return nil, NewError(ErrDatabaseError, "failed to create share grant: "+err.Error()).
			WithEntity(ref).
			WithPrincipal(actorID)
	}

	return grant, nil
}

// CreateShares inserts multiple grants in a single transaction. Intended for
// administrative imports; the per-grant permission check is the caller's
// responsibility.
func (s *Service) CreateShares(ctx context.Context, grants []ShareGrant) error {
	now := time.Now()
	models := make([]*ShareGrant, len(grants))
	for i := range grants {
		g := grants[i]
		if g.ID == "" {
			g.ID = uuid.NewString()
		}
		if g.ExpiresAt.IsZero() {
			g.ExpiresAt = now.Add(DefaultShareDuration)
		}
		models[i] = &g
	}

	return s.Transaction(ctx, func(ctx context.Context) error {
		_, err := dbkit.BatchInsert(ctx, s.store(ctx), models, dbkit.BatchSize)
		err = dbkit.WithErr1(err, "CreateShares").Err()
		if err != nil {
			return NewError(ErrDatabaseError, "failed to batch create share grants")
		}
		return nil
	})
}

// UpdateShareInput describes a grant mutation. Nil/zero fields are left
// unchanged. Setting Password to a pointer to the empty string removes the
// password.
type UpdateShareInput struct {
	Level       Level
	Password    *string
	Duration    time.Duration
	ExpiresAt   time.Time
	Name        *string
	Description *string
}

// UpdateShare mutates an existing grant. Only the grant's creator may do so.
func (s *Service) UpdateShare(ctx context.Context, shareID string, in UpdateShareInput) (*ShareGrant, error) {
	actorID := GetActorID(ctx)
	if actorID == "" {
		return nil, NewError(ErrNoPrincipal, "actor required to update a share")
	}

	grant, err := s.GetShare(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if grant.CreatedBy != actorID {
		// Non-creators are told the grant does not exist.
		return nil, NewError(ErrNotFound, "share grant not found").WithShare(shareID)
	}

	if in.Level != "" {
		if !in.Level.Valid() {
			return nil, NewError(ErrInvalidLevel, "unknown permission level "+in.Level.String())
		}
		grant.Level = in.Level
	}
	if in.Password != nil {
		if *in.Password == "" {
			grant.PasswordHash = ""
		} else {
			hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, NewError(ErrValidation, "cannot hash share password")
			}
			grant.PasswordHash = string(hash)
		}
	}
	if !in.ExpiresAt.IsZero() {
		if in.ExpiresAt.Before(time.Now()) {
			return nil, NewError(ErrValidation, "expiration date cannot be in the past")
		}
		grant.ExpiresAt = in.ExpiresAt
	} else if in.Duration > 0 {
		grant.ExpiresAt = time.Now().Add(in.Duration)
	}
	if in.Name != nil {
		grant.Name = *in.Name
	}
	if in.Description != nil {
		grant.Description = *in.Description
	}
	grant.UpdatedAt = time.Now()

	result, err := s.store(ctx).NewUpdate().
		Model(grant).
		WherePK().
		Exec(ctx)
	err = dbkit.WithErr(result, err, "UpdateShareGrant").Err()
	if err != nil {
		return nil, NewError(ErrDatabaseError, "failed to update share grant").WithShare(shareID)
	}

	return grant, nil
}

// DeleteShare removes a grant. Only the grant's creator may do so.
func (s *Service) DeleteShare(ctx context.Context, shareID string) error {
	actorID := GetActorID(ctx)
	if actorID == "" {
		return NewError(ErrNoPrincipal, "actor required to delete a share")
	}

	result, err := s.store(ctx).NewDelete().
		Table("share_grants").
		Where("id = ? AND created_by = ?", shareID, actorID).
		Exec(ctx)
	err = dbkit.WithErr(result, err, "DeleteShareGrant").Err()
	if err != nil {
		return NewError(ErrDatabaseError, "failed to delete share grant").WithShare(shareID)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return NewError(ErrNotFound, "share grant not found").WithShare(shareID)
	}
	return nil
}

// ============================================================================
// ACCESS RECORDING
// ============================================================================

// RecordAccess appends exactly one AccessLogEntry for a successful share
// access and bumps the grant's counters. The log insert is the authoritative
// record and failing it fails the access; the counter update is best effort
// (a lost increment under concurrency is tolerable, a lost log entry is not).
func (s *Service) RecordAccess(ctx context.Context, grant *ShareGrant, passwordRequired bool) (*AccessLogEntry, error) {
	audit := GetAuditContext(ctx)
	entry := &AccessLogEntry{
		ShareID:          grant.ID,
		Principal:        GetPrincipal(ctx),
		SourceAddress:    audit.SourceAddress,
		UserAgent:        audit.UserAgent,
		PasswordRequired: passwordRequired,
		AccessedAt:       time.Now(),
	}

	result, err := s.store(ctx).NewInsert().Model(entry).Exec(ctx)
	err = dbkit.WithErr(result, err, "RecordShareAccess").Err()
	if err != nil {
		return nil, NewError(ErrDatabaseError, "failed to record share access: "+err.Error()).WithShare(grant.ID)
	}

	// SET access_count = access_count + 1 is atomic per statement; a failure
	// here only loses a metric, never the audit record.
	now := time.Now()
	_, counterErr := s.store(ctx).NewUpdate().
		Table("share_grants").
		Set("access_count = access_count + 1").
		Set("last_accessed_at = ?", now).
		Where("id = ?", grant.ID).
		Exec(ctx)
	if counterErr == nil {
		grant.AccessCount++
		grant.LastAccessedAt = &now
	}

	return entry, nil
}
