package sharekit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Database defines the database operations interface for dependency injection
type Database interface {
	dbkit.IDB
}

// TransactionManager defines the transaction management interface
type TransactionManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context) error) error
	ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// MigrationManager defines the migration management interface
type MigrationManager interface {
	Migrations() []dbkit.Migration
}

// HealthMonitor defines the health monitoring interface
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
	GetPoolStats() dbkit.PoolStats
}

// PoolManager defines the connection pool management interface
type PoolManager interface {
	ConfigureConnectionPool(config PoolConfig) error
	GetConnectionPoolConfig() (*PoolConfig, error)
	OptimizeConnectionPool() error
	ResetConnectionPool() error
}

// GrantManager defines the grant lifecycle interface
type GrantManager interface {
	CreateShare(ctx context.Context, in CreateShareInput) (*ShareGrant, error)
	UpdateShare(ctx context.Context, shareID string, in UpdateShareInput) (*ShareGrant, error)
	DeleteShare(ctx context.Context, shareID string) error
}

// PermissionResolver defines the permission resolution interface
type PermissionResolver interface {
	Resolve(ctx context.Context, ref EntityRef, principal string) (*Resolution, error)
	ResolveLevel(ctx context.Context, ref EntityRef, principal string) Level
}

// QueryHelper defines the query helper interface
type QueryHelper interface {
	ShareExists(ctx context.Context, ref EntityRef, grantee string) bool
	CountShares(ctx context.Context, ref EntityRef) (int, error)
	CountAccesses(ctx context.Context, shareID string) (int, error)
}

// AccessRecorder defines the access logging interface
type AccessRecorder interface {
	RecordAccess(ctx context.Context, grant *ShareGrant, passwordRequired bool) (*AccessLogEntry, error)
	GetAccessLog(ctx context.Context, filter AccessLogFilter) ([]AccessLogEntry, error)
}

// TransactionMonitor defines the transaction monitoring interface
type TransactionMonitor interface {
	GetTransactionMetrics() TransactionMetrics
	ResetTransactionMetrics()
	IsTransactionHealthy() bool
}
