package sharekit

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
)

// The active transaction travels in the context: every Service query goes
// through store(ctx), so work done inside the closure is bound to the
// transaction and actually rolls back with it.
const contextKeyTx contextKey = "sharekit:tx"

func withTx(ctx context.Context, tx *dbkit.Tx) context.Context {
	return context.WithValue(ctx, contextKeyTx, tx)
}

func txFrom(ctx context.Context) (*dbkit.Tx, bool) {
	tx, ok := ctx.Value(contextKeyTx).(*dbkit.Tx)
	return tx, ok
}

// store returns the database handle for one call: the transaction carried by
// the context when inside Transaction, the root pool otherwise.
func (s *Service) store(ctx context.Context) dbkit.IDB {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return s.db
}

// Transaction executes a function within a database transaction with automatic commit/rollback.
// If the function returns an error, the transaction is rolled back. Otherwise, it's committed.
// The transaction is carried in the context handed to fn; Service calls made
// with that context run inside it.
//
// Example:
//
//	err := service.Transaction(ctx, func(ctx context.Context) error {
//	    if _, err := service.CreateShare(ctx, docInput); err != nil {
//	        return err // This will cause a rollback
//	    }
//	    if _, err := service.CreateShare(ctx, folderInput); err != nil {
//	        return err // This will cause a rollback
//	    }
//	    return nil // This will cause a commit
//	})
func (s *Service) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	start := time.Now()
	var err error

	if tx, ok := txFrom(ctx); ok {
		// Already in a transaction, nest with a savepoint
		err = tx.Transaction(ctx, func(nested *dbkit.Tx) error {
			return fn(withTx(ctx, nested))
		})
	} else if db, ok := s.db.(*dbkit.DBKit); ok {
		err = db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(withTx(ctx, tx))
		})
	} else {
		err = fmt.Errorf("transaction support requires a dbkit.DBKit instance")
	}

	// Record transaction metrics
	duration := time.Since(start)
	s.txMonitor.recordTransaction(duration, err == nil)

	return err
}

// TransactionWithOptions executes a function within a database transaction with custom options.
// Supports read-only transactions, isolation levels, and other transaction parameters.
//
// Example:
//
//	err := service.TransactionWithOptions(ctx, dbkit.SerializableTxOptions(), func(ctx context.Context) error {
//	    // High isolation level operations
//	    _, err := service.CreateShare(ctx, input)
//	    return err
//	})
func (s *Service) TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context) error) error {
	if tx, ok := txFrom(ctx); ok {
		// Already in a transaction, use a savepoint (no options support in nested transactions)
		return tx.Transaction(ctx, func(nested *dbkit.Tx) error {
			return fn(withTx(ctx, nested))
		})
	}

	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.TransactionWithOptions(ctx, opts, func(tx *dbkit.Tx) error {
			return fn(withTx(ctx, tx))
		})
	}

	return fmt.Errorf("transaction support requires a dbkit.DBKit instance")
}

// ReadOnlyTransaction executes a function within a read-only database transaction.
// Useful for operations that only read data and want to ensure consistency.
//
// Example:
//
//	err := service.ReadOnlyTransaction(ctx, func(ctx context.Context) error {
//	    shares, err := service.GetEntityShares(ctx, ref)
//	    if err != nil {
//	        return err
//	    }
//	    _, err = service.GetAccessLog(ctx, sharekit.NewAccessLogFilter())
//	    return err
//	})
func (s *Service) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), fn)
}
