package sharekit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// MAINTENANCE
// ============================================================================

// PurgeExpired deletes grants whose expiration lies more than olderThan in
// the past. Expired grants are already invisible to resolution, so purging
// only reclaims storage; access log entries are never purged.
//
// Example (nightly cleanup keeping a 90-day grace window):
//
//	purged, err := service.PurgeExpired(ctx, 90*24*time.Hour)
func (s *Service) PurgeExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result, err := s.store(ctx).NewDelete().
		Table("share_grants").
		Where("expires_at < ?", cutoff).
		Exec(ctx)
	err = dbkit.WithErr(result, err, "PurgeExpiredGrants").Err()
	if err != nil {
		return 0, NewError(ErrDatabaseError, "failed to purge expired share grants")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// PurgeSessionVerifications deletes expired password session verifications.
// Only relevant when a StoreSessionVerifier is in use.
func (s *Service) PurgeSessionVerifications(ctx context.Context) (int64, error) {
	result, err := s.store(ctx).NewDelete().
		Table("share_session_verifications").
		Where("expires_at < ?", time.Now()).
		Exec(ctx)
	err = dbkit.WithErr(result, err, "PurgeSessionVerifications").Err()
	if err != nil {
		return 0, NewError(ErrDatabaseError, "failed to purge session verifications")
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}
