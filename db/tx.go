package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Tx is a transaction with the same statement API as DB, so repositories
// accept either through Querier.
type Tx struct {
	executor
}

// ExecTx runs fn inside a transaction at the driver's default isolation. It
// commits when fn returns nil and rolls back when fn returns an error or
// panics; the panic is re-raised. Nested calls are not supported.
//
//	err := store.ExecTx(ctx, func(tx *db.Tx) error {
//	    members := repo.NewMemberRepo(tx)
//	    ...
//	})
func (d *DB) ExecTx(ctx context.Context, fn func(*Tx) error) (err error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	sqltx, err := d.sqldb.BeginTx(ctx, nil)
	if err != nil {
		return d.mapErr(err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rbErr := sqltx.Rollback()
		if p := recover(); p != nil {
			panic(p)
		}
		if rbErr != nil && err != nil {
			err = fmt.Errorf("memberdir/db: rollback failed (%v) after: %w", rbErr, err)
		}
	}()

	tx := &Tx{
		executor: executor{
			conn:    sqltx,
			dialect: d.dialect,
			hooks:   d.hooks,
			errMap:  d.errMap,
		},
	}
	if err = fn(tx); err != nil {
		return d.mapErr(err)
	}

	if err = sqltx.Commit(); err != nil {
		committed = true // a failed Commit has already ended the transaction
		return d.mapErr(err)
	}
	committed = true
	return nil
}

// Querier is the statement surface shared by *DB and *Tx. Repository
// constructors take a Querier so they work inside transactions unchanged.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *Row
	Dialect() Dialect
}

var (
	_ Querier = (*DB)(nil)
	_ Querier = (*Tx)(nil)
)
