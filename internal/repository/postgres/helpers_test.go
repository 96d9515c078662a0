package postgres

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/totp-keeper/internal/repository"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func beginTx(t *testing.T, db *DB, mock pgxmock.PgxPoolIface) repository.Tx {
	t.Helper()
	mock.ExpectBegin()
	tx, err := NewTxManager(db, zaptest.NewLogger(t)).Begin(context.Background())
	require.NoError(t, err)
	return tx
}
