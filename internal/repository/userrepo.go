// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/totp-keeper/internal/model"
)

// UserRepository provides access to accounts and their MFA state.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// EnableTOTP stores the encrypted secret and sets totp_enabled, only if it is currently false.
	// It returns the updated user, or errs.ErrDuplicateEnrollment when no row qualified.
	EnableTOTP(ctx context.Context, tx Tx, id uuid.UUID, encSecret string) (*model.User, error)
}
