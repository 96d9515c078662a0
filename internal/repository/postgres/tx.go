package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/and161185/totp-keeper/internal/repository"
)

var errForeignTx = errors.New("postgres: transaction was not opened by this package")

// TxManager opens read-committed transactions on the pool.
type TxManager struct {
	db  *DB
	log *zap.Logger
}

// NewTxManager constructs a transaction manager.
func NewTxManager(db *DB, log *zap.Logger) *TxManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &TxManager{db: db, log: log}
}

// Begin starts a transaction. Callers must defer Release.
func (m *TxManager) Begin(ctx context.Context) (repository.Tx, error) {
	tx, err := m.db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, log: m.log}, nil
}

// Tx is a scoped pgx transaction owned by a single invocation.
type Tx struct {
	tx     pgx.Tx
	log    *zap.Logger
	closed bool
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	err := t.tx.Commit(ctx)
	t.closed = true
	return err
}

// Rollback aborts the transaction.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	t.closed = true
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

// Release rolls back unless the transaction already ended. It ignores caller cancellation.
func (t *Tx) Release(ctx context.Context) {
	if t.closed {
		return
	}
	if err := t.Rollback(context.WithoutCancel(ctx)); err != nil {
		t.log.Error("rollback failed", zap.Error(err))
	}
}

func unwrapTx(tx repository.Tx) (pgx.Tx, error) {
	pt, ok := tx.(*Tx)
	if !ok || pt == nil {
		return nil, errForeignTx
	}
	return pt.tx, nil
}
