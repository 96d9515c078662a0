// Package service contains application services for authentication and TOTP enrollment.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	pkgcrypto "github.com/and161185/totp-keeper/internal/crypto"
	"github.com/and161185/totp-keeper/internal/errs"
	"github.com/and161185/totp-keeper/internal/limiter"
	"github.com/and161185/totp-keeper/internal/model"
	"github.com/and161185/totp-keeper/internal/repository"
)

// AuthService defines registration and login.
type AuthService interface {
	// Register creates a new user with secure password hashing.
	Register(ctx context.Context, username, password string) (userID string, err error)
	// LoginWithIP applies rate-limiting and authenticates the user. totpCode is required
	// once the account has TOTP enabled.
	LoginWithIP(ctx context.Context, username, password, totpCode, ip string) (tokens model.Tokens, user model.User, err error)
}

// SecondFactor verifies a one-time code for an enrolled account.
type SecondFactor interface {
	CheckCode(u *model.User, code string) error
}

type AuthServiceImpl struct {
	users     repository.UserRepository
	signKey   []byte
	accessTTL time.Duration
	lim       limiter.Limiter
	mfa       SecondFactor
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, signKey []byte, accessTTL time.Duration, lim limiter.Limiter, mfa SecondFactor) *AuthServiceImpl {
	return &AuthServiceImpl{users: users, signKey: signKey, accessTTL: accessTTL, lim: lim, mfa: mfa}
}

// Register creates a new user record with a per-user salt. TOTP starts disabled.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		return "", errors.New("empty username/password")
	}
	uid, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	saltAuth, err := pkgcrypto.NewSalt()
	if err != nil {
		return "", err
	}

	u := &model.User{
		ID:       uid,
		Username: username,
		PwdHash:  pkgcrypto.HashPassword([]byte(password), saltAuth),
		SaltAuth: saltAuth,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return "", err
	}
	return uid.String(), nil
}

// LoginWithIP authenticates with rate limiting by (username, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, username, password, totpCode, ip string) (model.Tokens, model.User, error) {
	subject := limiter.ScopeLogin + username
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, subject, ipHash)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	if !allowed {
		return model.Tokens{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), u.SaltAuth, u.PwdHash) {
		// lookup errors are masked so user existence is not revealed
		return model.Tokens{}, model.User{}, s.failure(ctx, subject, ipHash, errs.ErrUnauthorized)
	}

	if u.TOTPEnabled {
		if totpCode == "" {
			return model.Tokens{}, model.User{}, errs.ErrMFARequired
		}
		if err := s.mfa.CheckCode(u, totpCode); err != nil {
			if errors.Is(err, errs.ErrInvalidCode) {
				return model.Tokens{}, model.User{}, s.failure(ctx, subject, ipHash, errs.ErrInvalidCode)
			}
			return model.Tokens{}, model.User{}, err
		}
	}

	// best-effort reset
	_ = s.lim.Success(ctx, subject, ipHash)

	access, exp, err := s.issueAccessToken(u.ID)
	if err != nil {
		return model.Tokens{}, model.User{}, err
	}
	return model.Tokens{AccessToken: access, ExpiresAt: exp}, *u, nil
}

// failure records a failed attempt and returns ErrRateLimited once blocked, cause otherwise.
func (s *AuthServiceImpl) failure(ctx context.Context, subject string, ipHash []byte, cause error) error {
	if blocked, _, ferr := s.lim.Failure(ctx, subject, ipHash); ferr == nil && blocked {
		return errs.ErrRateLimited
	}
	return cause
}

// issueAccessToken creates a signed HS256 JWT for the given subject.
func (s *AuthServiceImpl) issueAccessToken(userID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.accessTTL)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signKey)
	return signed, exp, err
}
