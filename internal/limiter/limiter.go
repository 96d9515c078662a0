// Package limiter throttles repeated failures of credential checks (passwords and one-time codes).
package limiter

import (
	"context"
	"time"
)

// Limiter tracks failed attempts per (subject, client) pair and imposes temporary lockouts.
// A subject is an opaque key such as "login:alice" or "totp:<user id>".
type Limiter interface {
	// Allow reports whether an attempt is currently allowed and, if not, how long to wait.
	Allow(ctx context.Context, subject string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful attempt.
	Success(ctx context.Context, subject string, ipHash []byte) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, subject string, ipHash []byte) (bool, time.Duration, error)
}

// Subject prefixes.
const (
	ScopeLogin = "login:"
	ScopeTOTP  = "totp:"
)
