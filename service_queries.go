package sharekit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// ============================================================================
// DATA RETRIEVAL
// ============================================================================

// GetShare retrieves a grant by its opaque ID.
func (s *Service) GetShare(ctx context.Context, shareID string) (*ShareGrant, error) {
	var grant ShareGrant
	err := dbkit.WithErr1(s.store(ctx).NewSelect().Model(&grant).Where("id = ?", shareID).Limit(1).Scan(ctx), "GetShareGrant").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, NewError(ErrNotFound, "share grant not found").WithShare(shareID)
		}
		return nil, err
	}
	return &grant, nil
}

// GetEntityShares retrieves all live (non-expired) grants for one entity.
func (s *Service) GetEntityShares(ctx context.Context, ref EntityRef) (*ShareSet, error) {
	var grants []ShareGrant
	err := dbkit.WithErr1(s.store(ctx).NewSelect().Model(&grants).
		Where("entity_type = ? AND entity_id = ? AND expires_at > ?", ref.Type, ref.ID, time.Now()).
		Scan(ctx), "GetEntityShares").Err()
	if err != nil {
		return nil, err
	}
	return NewShareSet(ref, grants), nil
}

// SharesCreatedBy retrieves all grants created by a principal, including
// expired ones (the creator manages their own grants).
func (s *Service) SharesCreatedBy(ctx context.Context, principal string) ([]ShareGrant, error) {
	var grants []ShareGrant
	err := dbkit.WithErr1(s.store(ctx).NewSelect().Model(&grants).
		Where("created_by = ?", principal).
		Order("created_at DESC").
		Scan(ctx), "SharesCreatedBy").Err()
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// SharesReceivedBy retrieves all live grants targeting a principal.
func (s *Service) SharesReceivedBy(ctx context.Context, principal string) ([]ShareGrant, error) {
	if principal == "" {
		return nil, nil
	}
	var grants []ShareGrant
	err := dbkit.WithErr1(s.store(ctx).NewSelect().Model(&grants).
		Where("grantee = ? AND is_public = FALSE AND expires_at > ?", principal, time.Now()).
		Order("created_at DESC").
		Scan(ctx), "SharesReceivedBy").Err()
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// ============================================================================
// PERMISSION RESOLUTION
// ============================================================================

// Resolve computes a principal's effective permission on an entity.
// The entity is fetched through the registry; a missing entity, an
// unregistered type, or a lookup fault all fail closed to LevelNone, never
// to grant-only resolution. Only store faults are returned as errors.
func (s *Service) Resolve(ctx context.Context, ref EntityRef, principal string) (*Resolution, error) {
	shares, err := s.GetEntityShares(ctx, ref)
	if err != nil {
		return nil, err
	}

	entity, err := s.registry.LookupEntity(ctx, ref)
	if err != nil {
		entity = nil
	}

	return Resolve(entity, ref, principal, shares), nil
}

// ResolveLevel is a convenience wrapper returning only the effective level.
// Any failure resolves to LevelNone (fail closed).
//
// Example:
//
//	if service.ResolveLevel(ctx, ref, userID).Sufficient(sharekit.LevelEdit) {
//	    // User can edit
//	}
func (s *Service) ResolveLevel(ctx context.Context, ref EntityRef, principal string) Level {
	res, err := s.Resolve(ctx, ref, principal)
	if err != nil {
		return LevelNone
	}
	return res.Level()
}

// ============================================================================
// QUERY HELPERS
// ============================================================================

// ShareExists checks if a live grant exists for a target without loading it.
func (s *Service) ShareExists(ctx context.Context, ref EntityRef, grantee string) bool {
	exists, err := dbkit.Exists[ShareGrant](ctx, s.store(ctx), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("entity_type = ? AND entity_id = ? AND grantee = ? AND expires_at > ?",
			ref.Type, ref.ID, grantee, time.Now())
	})
	if err != nil {
		return false
	}
	return exists
}

// CountShares returns the number of live grants on one entity.
func (s *Service) CountShares(ctx context.Context, ref EntityRef) (int, error) {
	return dbkit.Count[ShareGrant](ctx, s.store(ctx), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("entity_type = ? AND entity_id = ? AND expires_at > ?", ref.Type, ref.ID, time.Now())
	})
}

// CountAccesses returns the number of access log entries for one grant.
// Unlike the grant's access_count metric, this is exact.
func (s *Service) CountAccesses(ctx context.Context, shareID string) (int, error) {
	return dbkit.Count[AccessLogEntry](ctx, s.store(ctx), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("share_id = ?", shareID)
	})
}
