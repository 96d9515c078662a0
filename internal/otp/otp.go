// Package otp generates TOTP shared secrets and verifies RFC 6238 codes against them.
package otp

import (
	"encoding/base32"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/and161185/totp-keeper/internal/errs"
	"github.com/and161185/totp-keeper/internal/model"
)

const (
	// Period is the time-step length in seconds.
	Period = 30
	// Digits is the code length.
	Digits = 6
	// SecretSize is the number of random bytes in a generated secret (160 bits).
	SecretSize = 20
	// MinSecretSize is the smallest decoded secret accepted for verification (RFC 4226 R6).
	MinSecretSize = 16
)

var b32NoPadding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Generator creates fresh shared secrets and their provisioning URIs.
type Generator struct {
	issuer string
	rand   io.Reader // nil means crypto/rand
}

// NewGenerator returns a Generator that labels keys with issuer.
func NewGenerator(issuer string) *Generator {
	return &Generator{issuer: issuer}
}

// Generate returns a new 20-byte secret, Base32 without padding, for account.
func (g *Generator) Generate(account string) (model.TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      g.issuer,
		AccountName: account,
		Period:      Period,
		SecretSize:  SecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
		Rand:        g.rand,
	})
	if err != nil {
		return model.TOTPKey{}, fmt.Errorf("otp: generate secret: %w", err)
	}
	return model.TOTPKey{Secret: key.Secret(), URI: key.URL()}, nil
}

// Verifier computes and checks time-based codes. It holds no mutable state.
type Verifier struct {
	skew uint
}

// NewVerifier returns a Verifier accepting codes up to skew steps away from the current one.
func NewVerifier(skew uint) *Verifier {
	return &Verifier{skew: skew}
}

func (v *Verifier) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      v.skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// GenerateCode returns the zero-padded 6-digit code for the step containing at.
func (v *Verifier) GenerateCode(secret string, at time.Time) (string, error) {
	if err := CheckSecret(secret); err != nil {
		return "", err
	}
	code, err := totp.GenerateCodeCustom(secret, at.UTC(), v.opts())
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrInvalidSecret, err)
	}
	return code, nil
}

// Verify reports whether code matches any step within the window around at.
// A mismatch is (false, nil); only an unusable secret is an error.
func (v *Verifier) Verify(secret, code string, at time.Time) (bool, error) {
	if err := CheckSecret(secret); err != nil {
		return false, err
	}
	code = strings.TrimSpace(code)
	if !wellFormedCode(code) {
		return false, nil
	}
	ok, err := totp.ValidateCustom(code, secret, at.UTC(), v.opts())
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrInvalidSecret, err)
	}
	return ok, nil
}

// CheckSecret validates that secret is Base32 and long enough to key HMAC-SHA1.
func CheckSecret(secret string) error {
	s := strings.TrimRight(strings.ToUpper(strings.TrimSpace(secret)), "=")
	if s == "" {
		return errs.ErrInvalidSecret
	}
	raw, err := b32NoPadding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: not base32", errs.ErrInvalidSecret)
	}
	if len(raw) < MinSecretSize {
		return fmt.Errorf("%w: %d bytes, need at least %d", errs.ErrInvalidSecret, len(raw), MinSecretSize)
	}
	return nil
}

func wellFormedCode(code string) bool {
	if len(code) != Digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
