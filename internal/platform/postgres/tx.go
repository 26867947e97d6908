package postgres

import (
	"context"
	"database/sql"
	"time"

	dErrors "cardledger/pkg/domain-errors"
	txcontext "cardledger/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// TxRunner runs a function inside a database transaction carried by the context.
// Stores that find the transaction in ctx join it; row locks taken with FOR UPDATE
// serialise writers of the same card.
type TxRunner struct {
	db      *sql.DB
	timeout time.Duration
}

func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db, timeout: defaultTxTimeout}
}

// RunInTx commits when fn returns nil and rolls back otherwise. key is unused: row locks
// already scope contention to one card.
func (t *TxRunner) RunInTx(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	return tx.Commit()
}

// RunReadOnly runs fn in a read-only REPEATABLE READ transaction so every query sees the
// same snapshot.
func (t *TxRunner) RunReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "read aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}
