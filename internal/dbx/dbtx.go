// Package dbx holds the small database abstractions shared by repositories:
// the DBTX handle implemented by both *sql.DB and *sql.Tx, and WithTx, which
// scopes a unit of work to one transaction.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the subset of database/sql used by the repositories.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner starts transactions. *sql.DB implements it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// TxFunc is a unit of work executed against a transactional handle.
type TxFunc func(ctx context.Context, tx DBTX) error

// WithTx begins a transaction, runs fn with the transactional handle and
// commits when fn succeeds. Any error from fn, or a panic, rolls the
// transaction back; panics are rethrown after the rollback.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    if err := places(tx).Delete(ctx, id); err != nil {
//	        return err
//	    }
//	    return users(tx).RemovePlace(ctx, ownerID, id)
//	})
func WithTx(ctx context.Context, db TxBeginner, opts *sql.TxOptions, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit tx: %w", cerr)
		}
	}()

	err = fn(ctx, tx)
	return err
}
