// Package migrate applies embedded SQL migrations on startup.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/and161185/totp-keeper/migrations"
)

// Up runs all pending migrations from the embedded filesystem.
func Up(ctx context.Context, dsn string, log *zap.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	return up(ctx, db, migrations.FS, log)
}

func up(ctx context.Context, db *sql.DB, fsys fs.FS, log *zap.Logger) error {
	goose.SetBaseFS(fsys)
	goose.SetLogger(zapLogger{log: log.Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// zapLogger routes goose output through zap.
type zapLogger struct{ log *zap.SugaredLogger }

func (l zapLogger) Fatalf(format string, v ...any) { l.log.Errorf(format, v...) }
func (l zapLogger) Printf(format string, v ...any) { l.log.Infof(format, v...) }
