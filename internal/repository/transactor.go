package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/gmcfx/GM-Capital/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxTxKey struct{}

// TxFunc unit of work executed inside a transaction
type TxFunc func(context.Context) error

// injects pgx.Tx into context
func injectTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, pgxTxKey{}, tx)
}

// retrieves pgx.Tx from context
func extractTx(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(pgxTxKey{}).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// PgxTransactor runs units of work in a postgres transaction
type PgxTransactor struct {
	pool *pgxpool.Pool
}

// NewPgxTransactor builds new PgxTransactor
func NewPgxTransactor(p *pgxpool.Pool) *PgxTransactor {
	return &PgxTransactor{pool: p}
}

// WithinTransaction runs WithinTransactionWithOptions with read committed isolation
func (t *PgxTransactor) WithinTransaction(ctx context.Context, txFunc func(context.Context) error) error {
	return WithinTransactionWithOptions(ctx, t.pool, txFunc, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
}

// PgxQueryRunner represents query runner behavior
type PgxQueryRunner interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...interface{}) pgx.Row
}

// PgxWithinTransactionRunner query runner that follows the transaction carried by ctx
type PgxWithinTransactionRunner struct {
	pool *pgxpool.Pool
}

// NewPgxWithinTransactionRunner builds new PgxWithinTransactionRunner
func NewPgxWithinTransactionRunner(p *pgxpool.Pool) *PgxWithinTransactionRunner {
	return &PgxWithinTransactionRunner{pool: p}
}

// Runner extracts query runner from context, if pgx.Tx is injected into context it is returned and pgxpool.Pool otherwise
func (r *PgxWithinTransactionRunner) Runner(ctx context.Context) PgxQueryRunner {
	tx := extractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

// InTransaction reports whether ctx carries a transaction
func (r *PgxWithinTransactionRunner) InTransaction(ctx context.Context) bool {
	return extractTx(ctx) != nil
}

// Exec calls pgxpool.Pool.Exec or pgx.Tx.Exec depending on execution context
func (r *PgxWithinTransactionRunner) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return r.Runner(ctx).Exec(ctx, sql, arguments...)
}

// Query calls pgxpool.Pool.Query or pgx.Tx.Query depending on execution context
func (r *PgxWithinTransactionRunner) Query(ctx context.Context, sql string, optionsAndArgs ...interface{}) (pgx.Rows, error) {
	return r.Runner(ctx).Query(ctx, sql, optionsAndArgs...)
}

// QueryRow calls pgxpool.Pool.QueryRow or pgx.Tx.QueryRow depending on execution context
func (r *PgxWithinTransactionRunner) QueryRow(ctx context.Context, sql string, optionsAndArgs ...interface{}) pgx.Row {
	return r.Runner(ctx).QueryRow(ctx, sql, optionsAndArgs...)
}

// PgxTransactionInitiator represents transaction initiator
type PgxTransactionInitiator interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// WithinTransactionWithOptions runs logic within transaction passing context with pgx.Tx injected into it.
// The transaction commits when txFunc returns nil and rolls back otherwise.
func WithinTransactionWithOptions(ctx context.Context, txInit PgxTransactionInitiator, txFunc TxFunc, opts pgx.TxOptions) (err error) {
	tx, err := txInit.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("transactor - WithinTransaction - BeginTx: %w: %w", model.ErrStorage, model.Deadline(err))
	}
	defer func() {
		var txErr error
		if err != nil {
			txErr = tx.Rollback(ctx)
		} else {
			txErr = tx.Commit(ctx)
			if txErr != nil {
				txErr = fmt.Errorf("transactor - WithinTransaction - Commit: %w: %w", model.ErrStorage, model.Deadline(txErr))
			}
		}

		if txErr != nil && !errors.Is(txErr, pgx.ErrTxClosed) && err == nil {
			err = txErr
		}
	}()

	err = txFunc(injectTx(ctx, tx))
	return err
}
