package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/totp-keeper/internal/errs"
	"github.com/and161185/totp-keeper/internal/model"
	"github.com/and161185/totp-keeper/internal/repository"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, username, pwd_hash, salt_auth, totp_enabled, totp_secret, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.PwdHash, &u.SaltAuth, &u.TOTPEnabled, &u.TOTPSecret, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row with MFA disabled.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, username, pwd_hash, salt_auth)
VALUES ($1, $2, $3, $4)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Username, u.PwdHash, u.SaltAuth)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByUsername selects a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, username))
}

// EnableTOTP sets the encrypted secret and flips totp_enabled only while it is false.
func (r *UserRepo) EnableTOTP(ctx context.Context, tx repository.Tx, id uuid.UUID, encSecret string) (*model.User, error) {
	ptx, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}
	const q = `
UPDATE users
SET totp_secret = $2, totp_enabled = true, updated_at = now()
WHERE id = $1 AND totp_enabled = false
RETURNING ` + userColumns
	u, err := scanUser(ptx.QueryRow(ctx, q, id, encSecret))
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrDuplicateEnrollment
	}
	return u, err
}
