package sharekit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Service provides grant management, permission resolution, and access
// logging. It integrates with the database through dbkit with enhanced
// error handling.
//
// Error Handling:
// All database operations use dbkit's chainable error wrapping to provide
// detailed context about failed operations. Store faults always fail closed:
// callers translate them to NotFound, never to implicit access.
//
// Example error handling:
//
//	grant, err := service.CreateShare(ctx, input)
//	if err != nil {
//	    if sharekit.IsValidation(err) {
//	        // Malformed input (neither public nor targeted, bad level, ...)
//	    }
//	    if sharekit.IsForbidden(err) {
//	        // Actor lacks ADMIN on the target entity
//	    }
//	}
type Service struct {
	db        dbkit.IDB
	registry  *Registry
	txMonitor *transactionMonitor
}

// NewService creates a new ShareKit service.
//
// Example:
//
//	registry := sharekit.NewRegistry()
//	// ... register entity types ...
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := sharekit.NewService(registry, db)
func NewService(registry *Registry, db dbkit.IDB) *Service {
	return &Service{
		db:        db,
		registry:  registry,
		txMonitor: newTransactionMonitor(),
	}
}

// Registry returns the entity type registry.
func (s *Service) Registry() *Registry {
	return s.registry
}

// ============================================================================
// ACCESS LOG
// ============================================================================

// GetAccessLog retrieves access log entries with optional filters.
func (s *Service) GetAccessLog(ctx context.Context, filter AccessLogFilter) ([]AccessLogEntry, error) {
	var entries []AccessLogEntry
	q := s.store(ctx).NewSelect().Model(&entries)
	if filter.ShareID != "" {
		q = q.Where("share_id = ?", filter.ShareID)
	}
	if filter.Principal != "" {
		q = q.Where("principal = ?", filter.Principal)
	}
	if filter.Anonymous {
		q = q.Where("principal IS NULL OR principal = ''")
	}
	if filter.SourceAddress != "" {
		q = q.Where("source_address = ?", filter.SourceAddress)
	}
	if filter.PasswordRequired != nil {
		q = q.Where("password_required = ?", *filter.PasswordRequired)
	}
	if !filter.Since.IsZero() {
		q = q.Where("accessed_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("accessed_at <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("accessed_at DESC")
	err := dbkit.WithErr1(q.Scan(ctx), "GetAccessLog").Err()
	if err != nil {
		return nil, err
	}

	return entries, nil
}
