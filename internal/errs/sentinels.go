// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")
)

// MFA sentinels.
var (
	// ErrDuplicateEnrollment indicates the account already has TOTP enabled.
	ErrDuplicateEnrollment = errors.New("totp already enabled for account")

	// ErrMFARequired indicates the account has TOTP enabled and no code was supplied.
	ErrMFARequired = errors.New("totp code required")

	// ErrInvalidCode indicates the submitted one-time code matched no step in the window.
	ErrInvalidCode = errors.New("invalid totp code")

	// ErrInvalidSecret indicates a TOTP secret that is not valid Base32 or is too short.
	ErrInvalidSecret = errors.New("invalid totp secret")

	// ErrMalformedInput indicates an encrypted blob that is not hex or is shorter than its header.
	ErrMalformedInput = errors.New("malformed encrypted blob")

	// ErrIntegrity indicates an encrypted blob failed authentication.
	ErrIntegrity = errors.New("encrypted blob failed authentication")
)
