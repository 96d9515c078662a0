package repository

import "context"

// Tx is a unit of work. Release rolls back an uncommitted transaction and is safe to call
// more than once, including after Commit.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Release(ctx context.Context)
}

// TxManager opens transactions.
type TxManager interface {
	Begin(ctx context.Context) (Tx, error)
}
