package sharekit

import (
	"github.com/fernandezvara/dbkit"
)

// MigrationService provides migration management functionality as an extension to Service
type MigrationService struct {
	*Service
}

// NewMigrationService creates a new migration service extension
func NewMigrationService(service *Service) *MigrationService {
	return &MigrationService{Service: service}
}

// Migrations returns all database migrations required for ShareKit.
// Use dbkit.Migrate(ctx, service.Migrations()) to run migrations.
// Use dbkit.MigrationStatus(ctx, service.Migrations()) to check status.
func (ms *MigrationService) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "sharekit-001",
			Description: "Create share_grants table",
			SQL: `
                CREATE TABLE IF NOT EXISTS share_grants (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    entity_type TEXT NOT NULL,
                    entity_id TEXT NOT NULL,
                    created_by TEXT NOT NULL,
                    grantee TEXT NOT NULL DEFAULT '',
                    is_public BOOLEAN NOT NULL DEFAULT FALSE,
                    level TEXT NOT NULL,
                    password_hash TEXT NOT NULL DEFAULT '',
                    expires_at TIMESTAMPTZ NOT NULL,
                    access_count BIGINT NOT NULL DEFAULT 0,
                    last_accessed_at TIMESTAMPTZ,
                    name TEXT NOT NULL DEFAULT '',
                    description TEXT NOT NULL DEFAULT '',
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "sharekit-002",
			Description: "Create unique share target index",
			SQL: `
                CREATE UNIQUE INDEX IF NOT EXISTS idx_share_grants_target
                    ON share_grants (entity_type, entity_id, grantee)`,
		},
		{
			ID:          "sharekit-003",
			Description: "Create entity lookup index",
			SQL: `
                CREATE INDEX IF NOT EXISTS idx_share_grants_entity
                    ON share_grants (entity_type, entity_id, expires_at)`,
		},
		{
			ID:          "sharekit-004",
			Description: "Create share_access_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS share_access_log (
                    id BIGSERIAL PRIMARY KEY,
                    share_id UUID NOT NULL,
                    principal TEXT NOT NULL DEFAULT '',
                    source_address TEXT,
                    user_agent TEXT,
                    password_required BOOLEAN NOT NULL DEFAULT FALSE,
                    accessed_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                );
                CREATE INDEX IF NOT EXISTS idx_share_access_log_share
                    ON share_access_log (share_id, accessed_at)`,
		},
		{
			ID:          "sharekit-005",
			Description: "Create share_session_verifications table",
			SQL: `
                CREATE TABLE IF NOT EXISTS share_session_verifications (
                    session_id TEXT NOT NULL,
                    share_id UUID NOT NULL,
                    verified_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    expires_at TIMESTAMPTZ NOT NULL,
                    PRIMARY KEY (session_id, share_id)
                )`,
		},
	}
}
