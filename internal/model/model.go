// Package model defines domain entities used by services and repositories.
package model

import (
	"net/netip"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User represents an account stored on the server. Secrets are never stored in plaintext.
type User struct {
	ID          uuid.UUID // PK
	Username    string    // unique
	PwdHash     []byte    // Argon2id(password, SaltAuth)
	SaltAuth    []byte    // per-user auth salt
	TOTPEnabled bool      // true once enrollment committed
	TOTPSecret  string    // hex AEAD blob; empty iff !TOTPEnabled
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Watched account fields recorded in audit metadata.
const (
	FieldTOTPEnabled = "totp_enabled"
	FieldTOTPSecret  = "totp_secret"
)

// FieldValues returns the comparable values of the audited fields keyed by column name.
func (u *User) FieldValues() map[string]any {
	return map[string]any{
		FieldTOTPEnabled: u.TOTPEnabled,
		FieldTOTPSecret:  u.TOTPSecret,
	}
}

// EventType classifies audit events.
type EventType string

// EventTypeAccountUpdate is recorded for every mutation of an account record.
const EventTypeAccountUpdate EventType = "account-update"

// Event is an immutable audit trail entry.
type Event struct {
	ID               uuid.UUID
	Type             EventType
	OriginatorUserID uuid.UUID
	OriginatorIP     string
	Metadata         map[string]any
	CreatedAt        time.Time
}

// AccountUpdateMetadata is the audit payload of an account-update event.
type AccountUpdateMetadata struct {
	ID            uuid.UUID `json:"id"`
	UpdatedFields []string  `json:"updated_fields"`
}

// Map renders the metadata as a JSON object.
func (m AccountUpdateMetadata) Map() map[string]any {
	fields := m.UpdatedFields
	if fields == nil {
		fields = []string{}
	}
	return map[string]any{
		"id":             m.ID.String(),
		"updated_fields": fields,
	}
}

// Originator identifies who triggered a mutation and from where.
type Originator struct {
	UserID uuid.UUID
	IP     string
}

// NormalizeIP strips a port from a peer address and returns the bare address when parseable.
func NormalizeIP(addr string) string {
	if ap, err := netip.ParseAddrPort(addr); err == nil {
		return ap.Addr().String()
	}
	if a, err := netip.ParseAddr(addr); err == nil {
		return a.String()
	}
	return addr
}

// TOTPKey is a freshly generated shared secret together with its provisioning data.
type TOTPKey struct {
	Secret    string // Base32, no padding
	URI       string // otpauth:// provisioning URI
	QRCodeURI string // data:image/png;base64,...
}
