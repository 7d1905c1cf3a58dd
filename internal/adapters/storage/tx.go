package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// DB is the handle every store is built on.
// Both *sqlx.DB and *TimedDB satisfy this interface.
type DB interface {
	sqlx.ExtContext
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

var _ DB = (*sqlx.DB)(nil)

type txKey struct{}

// Conn returns the transaction bound to ctx, or db when there is none.
// Stores call it for every statement so they join the caller's transaction.
func Conn(ctx context.Context, db DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// InTransaction reports whether ctx carries a transaction.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return ok
}

// Transactor runs units of work inside one database transaction.
type Transactor struct {
	db DB
}

// NewTransactor creates a Transactor over db.
func NewTransactor(db DB) *Transactor {
	return &Transactor{db: db}
}

// InTx runs fn inside a transaction bound to the context passed to fn.
// PRE: fn performs all writes through Conn(ctx, ...)
// POST: committed iff fn returns nil; nested calls join the outer transaction
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			safeRollback(tx)
			panic(p)
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		safeRollback(tx)
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func safeRollback(tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		slog.Warn("rollback_failed", "error", err)
	}
}
