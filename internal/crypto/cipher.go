package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/and161185/totp-keeper/internal/errs"
)

// Blob layout: IV(16) || Tag(16) || Ciphertext(N), lowercase hex.
const (
	// AlgorithmAES256GCM is the only supported secret-encryption method.
	AlgorithmAES256GCM = "aes-256-gcm"

	KeySize    = 32
	IVSize     = 16
	TagSize    = 16
	HeaderSize = IVSize + TagSize
)

var (
	// ErrEmptyPassphrase is returned when no passphrase is configured.
	ErrEmptyPassphrase = errors.New("crypto: empty passphrase")
	// ErrUnsupportedAlgorithm is returned for any method other than aes-256-gcm.
	ErrUnsupportedAlgorithm = errors.New("crypto: unsupported encryption method")
)

// Key is the process-wide secret-encryption key. It is immutable once derived.
type Key struct{ b [KeySize]byte }

// DeriveKey hashes passphrase with SHA-512 and keeps the first 32 characters of the
// lowercase hex digest as key bytes, matching blobs produced by earlier deployments.
func DeriveKey(passphrase string) (Key, error) {
	if passphrase == "" {
		return Key{}, ErrEmptyPassphrase
	}
	sum := sha512.Sum512([]byte(passphrase))
	digest := hex.EncodeToString(sum[:])

	var k Key
	copy(k.b[:], digest[:KeySize])
	return k, nil
}

// String never renders key material.
func (Key) String() string { return "crypto.Key(redacted)" }

// GoString never renders key material.
func (k Key) GoString() string { return k.String() }

// Cipher encrypts short strings (TOTP secrets) with AES-256-GCM under a single key.
// It is safe for concurrent use.
type Cipher struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewCipher builds a Cipher for the configured method and derived key.
func NewCipher(method string, key Key) (*Cipher, error) {
	if !strings.EqualFold(strings.TrimSpace(method), AlgorithmAES256GCM) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, method)
	}
	block, err := aes.NewCipher(key.b[:])
	if err != nil {
		return nil, fmt.Errorf("crypto: aes init: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("crypto: gcm init: %w", err)
	}
	return &Cipher{aead: aead, rand: rand.Reader}, nil
}

// Encrypt seals plaintext under a fresh random IV and returns the hex blob.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return "", fmt.Errorf("crypto: iv generation: %w", err)
	}

	// Seal returns ciphertext || tag.
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	n := len(sealed) - TagSize

	out := make([]byte, 0, HeaderSize+n)
	out = append(out, iv...)
	out = append(out, sealed[n:]...)
	out = append(out, sealed[:n]...)
	return hex.EncodeToString(out), nil
}

// Decrypt opens a blob produced by Encrypt.
// It returns errs.ErrMalformedInput for non-hex or truncated input and errs.ErrIntegrity
// when authentication fails, without saying which part was wrong.
func (c *Cipher) Decrypt(blob string) (string, error) {
	if strings.IndexFunc(blob, unicode.IsUpper) >= 0 {
		return "", errs.ErrMalformedInput
	}
	raw, err := hex.DecodeString(blob)
	if err != nil || len(raw) < HeaderSize {
		return "", errs.ErrMalformedInput
	}

	iv := raw[:IVSize]
	tag := raw[IVSize:HeaderSize]
	ct := raw[HeaderSize:]

	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plain, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", errs.ErrIntegrity
	}
	return string(plain), nil
}
