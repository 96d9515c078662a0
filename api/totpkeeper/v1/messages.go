package totpkeeperv1

// RegisterRequest creates an account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=256"`
}

// RegisterResponse carries the new account id.
type RegisterResponse struct {
	UserID string `json:"user_id"`
}

// LoginRequest authenticates an account. TOTPCode is required once TOTP is enabled.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	TOTPCode string `json:"totp_code,omitempty" validate:"omitempty,len=6,numeric"`
}

// LoginResponse carries the access token.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"` // RFC 3339
	UserID      string `json:"user_id"`
	TOTPEnabled bool   `json:"totp_enabled"`
}

// QRCodeResponse carries a fresh secret and its provisioning data. Nothing is stored server-side.
type QRCodeResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURI string `json:"otpauth_uri"`
	QRCodeURI  string `json:"qrcode_uri"`
}

// VerifyTOTPRequest checks a code against a client-held secret.
type VerifyTOTPRequest struct {
	TOTPToken  string `json:"totp_token" validate:"required"`
	TOTPSecret string `json:"totp_secret" validate:"required,totp_secret"`
}

// EnableTOTPRequest enrolls the caller's account with a secret.
type EnableTOTPRequest struct {
	TOTPSecret string `json:"totp_secret" validate:"required,totp_secret"`
}
